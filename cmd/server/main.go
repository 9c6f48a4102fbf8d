package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"marketbay/internal/alerts"
	"marketbay/internal/auth"
	"marketbay/internal/catalog"
	"marketbay/internal/db"
	"marketbay/internal/escrow"
	"marketbay/internal/httpapi"
	"marketbay/internal/ledger"
	"marketbay/internal/reputation"
	"marketbay/internal/seq"
)

func main() {
	_ = godotenv.Load()

	// Initialize database connection
	db.Init()

	publisher := alerts.NewPublisher(alerts.RedisAddrFromEnv())
	defer publisher.Close()

	ctx := context.Background()

	adminID, err := auth.EnsureAdmin(ctx, db.Conn)
	if err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	productStore := catalog.NewPGStore(db.Conn)
	orderStore := escrow.NewPGStore(db.Conn)

	// Resume the id sequences past whatever is already on disk.
	lastProductID, err := productStore.MaxID(ctx)
	if err != nil {
		log.Fatalf("read max product id: %v", err)
	}
	lastOrderID, err := orderStore.MaxID(ctx)
	if err != nil {
		log.Fatalf("read max order id: %v", err)
	}

	funds := ledger.NewPG(db.Conn)
	rep := reputation.NewPG(db.Conn, publisher)
	cat := catalog.NewService(productStore, seq.NewAt(lastProductID), publisher)

	engine := escrow.NewEngine(escrow.Config{
		Orders:     orderStore,
		Products:   cat,
		Ledger:     funds,
		Reputation: rep,
		Events:     publisher,
		IDs:        seq.NewAt(lastOrderID),
		AdminID:    adminID,
		Timeout:    deliveryTimeoutFromEnv(),
	})

	e := echo.New()
	e.HideBanner = true

	h := &httpapi.Handlers{
		Engine:        engine,
		Catalog:       cat,
		Ledger:        funds,
		Reputation:    rep,
		EscrowAccount: "escrow",
	}
	h.Register(e)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func deliveryTimeoutFromEnv() time.Duration {
	raw := os.Getenv("DELIVERY_TIMEOUT")
	if raw == "" {
		return escrow.DefaultDeliveryTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid DELIVERY_TIMEOUT %q, using %s", raw, escrow.DefaultDeliveryTimeout)
		return escrow.DefaultDeliveryTimeout
	}
	return d
}
