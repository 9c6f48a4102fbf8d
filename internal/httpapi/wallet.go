package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// Balance returns the authenticated user's wallet balance.
func (h *Handlers) Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	balance, err := h.Ledger.BalanceOf(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "balance": balance})
}

// Deposit tops up the user's wallet.
func (h *Handlers) Deposit(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req amountRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	if err := h.Ledger.Deposit(c.Request().Context(), userID, req.Amount); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deposit recorded"})
}

// Withdraw moves funds out of the user's wallet.
func (h *Handlers) Withdraw(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req amountRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	if err := h.Ledger.Withdraw(c.Request().Context(), userID, req.Amount); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "withdrawal recorded"})
}

// Approve authorizes the escrow account to spend up to amount of the
// user's funds. Placing an order consumes this allowance.
func (h *Handlers) Approve(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req amountRequest
	if err := c.Bind(&req); err != nil || req.Amount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	if err := h.Ledger.Approve(c.Request().Context(), userID, h.EscrowAccount, req.Amount); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "allowance set", "amount": req.Amount})
}

// Allowance returns what the escrow account may still spend for the user.
func (h *Handlers) Allowance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	amount, err := h.Ledger.AuthorizedAmount(c.Request().Context(), userID, h.EscrowAccount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "allowance": amount})
}
