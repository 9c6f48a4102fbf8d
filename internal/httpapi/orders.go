package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PlaceOrder debits the buyer into escrow and holds the product.
func (h *Handlers) PlaceOrder(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ProductID uint64 `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product_id"})
	}

	o, err := h.Engine.PlaceOrder(c.Request().Context(), buyerID, req.ProductID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order":   o,
		"message": "order placed, funds held in escrow",
	})
}

// ConfirmOrder settles on the confirm path. The engine enforces that
// the caller is the order's buyer.
func (h *Handlers) ConfirmOrder(c echo.Context) error {
	callerID, ok := c.Get("user_id").(string)
	if !ok || callerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	if err := h.Engine.ConfirmDelivery(c.Request().Context(), callerID, orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "delivery confirmed, funds released to seller"})
}

// ReleaseOrder settles on the timeout path. No authentication: anyone
// may call it once the delivery timeout has elapsed.
func (h *Handlers) ReleaseOrder(c echo.Context) error {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	if err := h.Engine.ReleaseAfterTimeout(c.Request().Context(), orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "timeout reached, funds released to seller"})
}

// GetMyOrders returns orders where the user is buyer or seller.
func (h *Handlers) GetMyOrders(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orders, err := h.Engine.OrdersForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GetOrder returns a single order by id.
func (h *Handlers) GetOrder(c echo.Context) error {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	o, err := h.Engine.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
