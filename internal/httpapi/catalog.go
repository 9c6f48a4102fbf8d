package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"marketbay/internal/catalog"
)

// CreateProduct lists a new product for the authenticated seller.
func (h *Handlers) CreateProduct(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Price    int64  `json:"price"`
		Metadata string `json:"metadata"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	id, err := h.Catalog.ListProduct(c.Request().Context(), sellerID, req.Name, catalog.Category(req.Category), req.Price, req.Metadata)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"product_id": id,
		"message":    "product listed successfully",
	})
}

// GetProductsByCategory returns every product in ?category=, sold or not.
func (h *Handlers) GetProductsByCategory(c echo.Context) error {
	category := c.QueryParam("category")
	if category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category query parameter required"})
	}

	products, err := h.Catalog.GetByCategory(c.Request().Context(), category)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

// GetProduct returns a single product by id.
func (h *Handlers) GetProduct(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	p, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetMyProducts returns the seller's listings in listing order.
func (h *Handlers) GetMyProducts(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	products, err := h.Catalog.GetBySeller(c.Request().Context(), sellerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

// GetReputation returns a participant's reputation score.
func (h *Handlers) GetReputation(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	score, err := h.Reputation.Score(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "score": score})
}

func parseID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
