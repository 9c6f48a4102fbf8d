package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketbay/internal/catalog"
	"marketbay/internal/escrow"
	"marketbay/internal/ledger"
)

// writeError maps domain errors onto HTTP statuses: invalid input 400,
// missing identity 403, unknown ids 404, failed preconditions 409.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, escrow.ErrInvalidTimeout),
		errors.Is(err, ledger.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, escrow.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, escrow.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, escrow.ErrProductUnavailable),
		errors.Is(err, escrow.ErrAlreadySettled),
		errors.Is(err, escrow.ErrTimeoutNotReached),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
