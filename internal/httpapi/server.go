// Package httpapi wires the marketplace services into the Echo router.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"marketbay/internal/auth"
	"marketbay/internal/catalog"
	"marketbay/internal/escrow"
	"marketbay/internal/ledger"
	mware "marketbay/internal/middleware"
	"marketbay/internal/reputation"
)

// Handlers binds the services behind the HTTP surface.
type Handlers struct {
	Engine        *escrow.Engine
	Catalog       *catalog.Service
	Ledger        ledger.Ledger
	Reputation    reputation.Accumulator
	EscrowAccount string
}

// Register mounts every route on the Echo instance.
func (h *Handlers) Register(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "marketbay"})
	})

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)

	// Public reads
	e.GET("/marketplace/products", h.GetProductsByCategory)
	e.GET("/marketplace/products/:id", h.GetProduct)
	e.GET("/reputation/:id", h.GetReputation)

	// Timeout release is deliberately unauthenticated: any party may
	// trigger it once the deadline has passed.
	e.POST("/marketplace/orders/:id/release", h.ReleaseOrder)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.GET("/auth/me", auth.Me)

	api.GET("/wallet/balance", h.Balance)
	api.POST("/wallet/deposit", h.Deposit)
	api.POST("/wallet/withdraw", h.Withdraw)
	api.POST("/wallet/approve", h.Approve)
	api.GET("/wallet/allowance", h.Allowance)

	api.POST("/marketplace/products", h.CreateProduct, mware.RequireRoles("seller"))
	api.GET("/marketplace/products/me", h.GetMyProducts, mware.RequireRoles("seller"))

	api.POST("/marketplace/orders", h.PlaceOrder, mware.RequireRoles("buyer"))
	api.POST("/marketplace/orders/:id/confirm", h.ConfirmOrder)
	api.GET("/marketplace/orders/me", h.GetMyOrders)
	api.GET("/marketplace/orders/:id", h.GetOrder)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(mware.JWTMiddleware)
	admin.Use(mware.AdminGuard)

	admin.GET("/escrow/timeout", h.GetTimeout)
	admin.PUT("/escrow/timeout", h.SetTimeout)
	admin.GET("/stats", h.GetStats)
}
