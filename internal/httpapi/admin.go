package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// GetTimeout returns the current delivery timeout.
func (h *Handlers) GetTimeout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"timeout": h.Engine.DeliveryTimeout().String()})
}

// SetTimeout updates the delivery timeout. The engine additionally
// verifies the caller against the administrator identity it was
// constructed with.
func (h *Handlers) SetTimeout(c echo.Context) error {
	callerID, ok := c.Get("user_id").(string)
	if !ok || callerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Timeout string `json:"timeout"`
	}
	if err := c.Bind(&req); err != nil || req.Timeout == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "timeout duration required, e.g. \"72h\""})
	}

	d, err := time.ParseDuration(req.Timeout)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid duration"})
	}

	if err := h.Engine.SetDeliveryTimeout(callerID, d); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "delivery timeout updated", "timeout": d.String()})
}

// GetStats summarizes orders by settlement outcome.
func (h *Handlers) GetStats(c echo.Context) error {
	st, err := h.Engine.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
