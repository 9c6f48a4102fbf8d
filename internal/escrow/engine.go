package escrow

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"marketbay/internal/catalog"
	"marketbay/internal/ledger"
	"marketbay/internal/reputation"
	"marketbay/internal/seq"
)

// DefaultDeliveryTimeout applies when no timeout is configured.
const DefaultDeliveryTimeout = 72 * time.Hour

// Products is the slice of the catalog the engine needs.
type Products interface {
	Get(ctx context.Context, id uint64) (catalog.Product, error)
	SetAvailability(ctx context.Context, id uint64, available bool) error
}

// Events receives settlement notifications. A nil Events is a no-op.
type Events interface {
	OrderPlaced(o Order)
	OrderConfirmed(o Order)
	FundsReleased(o Order, path string)
	TimeoutUpdated(d time.Duration)
}

// Engine orchestrates the HELD -> RELEASED state machine across the
// order store, the ledger and the reputation accumulator.
//
// Every transition for a given order runs inside that order's critical
// section: the released check, the ledger movement and the flag flip
// are never interleaved with another transition on the same order, so
// exactly one of the confirm path and the timeout path can settle it.
type Engine struct {
	orders   Store
	products Products
	funds    ledger.Ledger
	rep      reputation.Accumulator
	events   Events
	clock    Clock
	ids      *seq.Sequence

	escrowAccount string
	adminID       string
	timeout       atomic.Int64 // nanoseconds

	mu keyedMutex
}

// Config wires an Engine.
type Config struct {
	Orders        Store
	Products      Products
	Ledger        ledger.Ledger
	Reputation    reputation.Accumulator
	Events        Events
	Clock         Clock
	IDs           *seq.Sequence
	EscrowAccount string
	AdminID       string
	Timeout       time.Duration
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		orders:        cfg.Orders,
		products:      cfg.Products,
		funds:         cfg.Ledger,
		rep:           cfg.Reputation,
		events:        cfg.Events,
		clock:         cfg.Clock,
		ids:           cfg.IDs,
		escrowAccount: cfg.EscrowAccount,
		adminID:       cfg.AdminID,
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.escrowAccount == "" {
		e.escrowAccount = "escrow"
	}
	// A zero-value config must not produce instantly releasable orders.
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDeliveryTimeout
	}
	e.timeout.Store(int64(cfg.Timeout))
	return e
}

// DeliveryTimeout returns the current timeout. Deadlines are computed
// against this value at check time, so an admin change applies to
// in-flight orders as well.
func (e *Engine) DeliveryTimeout() time.Duration {
	return time.Duration(e.timeout.Load())
}

// SetDeliveryTimeout updates the process-wide delivery timeout. Only
// the administrator fixed at construction may call it.
func (e *Engine) SetDeliveryTimeout(callerID string, d time.Duration) error {
	if callerID != e.adminID {
		return ErrUnauthorized
	}
	if d <= 0 {
		return ErrInvalidTimeout
	}
	e.timeout.Store(int64(d))
	if e.events != nil {
		e.events.TimeoutUpdated(d)
	}
	return nil
}

// PlaceOrder debits the buyer into escrow custody, marks the product
// unavailable and records the order. Nothing changes on failure.
func (e *Engine) PlaceOrder(ctx context.Context, buyerID string, productID uint64) (Order, error) {
	unlock := e.mu.lock(fmt.Sprintf("product:%d", productID))
	defer unlock()

	p, err := e.products.Get(ctx, productID)
	if err != nil {
		return Order{}, err
	}
	if !p.Available {
		return Order{}, ErrProductUnavailable
	}

	// The one mutating ledger call comes first; if it fails the
	// transition aborts with no state change anywhere.
	if err := e.funds.TransferFrom(ctx, buyerID, e.escrowAccount, e.escrowAccount, p.Price); err != nil {
		return Order{}, err
	}

	o := Order{
		ID:        e.ids.Next(),
		ProductID: p.ID,
		BuyerID:   buyerID,
		SellerID:  p.SellerID,
		Amount:    p.Price,
		CreatedAt: e.clock.Now(),
	}

	if err := e.products.SetAvailability(ctx, productID, false); err != nil {
		e.refund(ctx, buyerID, p.Price, o.ID)
		return Order{}, err
	}
	if err := e.orders.Insert(ctx, o); err != nil {
		if avErr := e.products.SetAvailability(ctx, productID, true); avErr != nil {
			log.Printf("escrow: restore availability for product %d: %v", productID, avErr)
		}
		e.refund(ctx, buyerID, p.Price, o.ID)
		return Order{}, err
	}

	if e.events != nil {
		e.events.OrderPlaced(o)
	}
	return o, nil
}

// ConfirmDelivery settles the order on the confirm path: only the
// order's buyer may call it, and only while the order is still held.
func (e *Engine) ConfirmDelivery(ctx context.Context, callerID string, orderID uint64) error {
	unlock := e.mu.lock(fmt.Sprintf("order:%d", orderID))
	defer unlock()

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.BuyerID != callerID {
		return ErrUnauthorized
	}
	if o.Released || o.Confirmed {
		return ErrAlreadySettled
	}

	if err := e.settle(ctx, o, true); err != nil {
		return err
	}

	e.creditReputation(ctx, o.SellerID, SellerConfirmPoints)
	e.creditReputation(ctx, o.BuyerID, BuyerConfirmPoints)

	o.Released = true
	o.Confirmed = true
	if e.events != nil {
		e.events.OrderConfirmed(o)
		e.events.FundsReleased(o, PathConfirmed)
	}
	return nil
}

// ReleaseAfterTimeout settles the order on the timeout path. It is
// deliberately permissionless: any party may call it once the deadline
// passes, so a seller is never stuck waiting on an unresponsive buyer.
func (e *Engine) ReleaseAfterTimeout(ctx context.Context, orderID uint64) error {
	unlock := e.mu.lock(fmt.Sprintf("order:%d", orderID))
	defer unlock()

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Released {
		return ErrAlreadySettled
	}

	deadline := o.CreatedAt.Add(e.DeliveryTimeout())
	if e.clock.Now().Before(deadline) {
		return ErrTimeoutNotReached
	}

	if err := e.settle(ctx, o, o.Confirmed); err != nil {
		return err
	}

	e.creditReputation(ctx, o.SellerID, SellerTimeoutPoints)

	o.Released = true
	if e.events != nil {
		e.events.FundsReleased(o, PathTimeout)
	}
	return nil
}

// GetOrder returns the order with the given id.
func (e *Engine) GetOrder(ctx context.Context, orderID uint64) (Order, error) {
	return e.orders.Get(ctx, orderID)
}

// OrdersForUser returns orders where the user is buyer or seller.
func (e *Engine) OrdersForUser(ctx context.Context, userID string) ([]Order, error) {
	return e.orders.ByUser(ctx, userID)
}

// Stats summarizes settlement outcomes for the admin surface.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.orders.Stats(ctx)
}

// settle moves the escrowed amount to the seller and flips the order's
// flags. Runs under the order's lock. If the flip fails after the
// credit, the compensating transfer puts the funds back in custody so
// no flag flip survives a failed transfer and vice versa.
func (e *Engine) settle(ctx context.Context, o Order, confirmed bool) error {
	if err := e.funds.Transfer(ctx, e.escrowAccount, o.SellerID, o.Amount); err != nil {
		return err
	}
	if err := e.orders.Settle(ctx, o.ID, confirmed); err != nil {
		if backErr := e.funds.Transfer(ctx, o.SellerID, e.escrowAccount, o.Amount); backErr != nil {
			log.Printf("escrow: compensating transfer for order %d failed: %v", o.ID, backErr)
		}
		return err
	}
	return nil
}

// refund returns escrowed funds to the buyer when a placement fails
// after the debit.
func (e *Engine) refund(ctx context.Context, buyerID string, amount int64, orderID uint64) {
	if err := e.funds.Transfer(ctx, e.escrowAccount, buyerID, amount); err != nil {
		log.Printf("escrow: refund for aborted order %d failed: %v", orderID, err)
	}
}

// creditReputation is best-effort: the settlement is already terminal,
// so a failed credit is logged rather than unwinding the payout.
func (e *Engine) creditReputation(ctx context.Context, userID string, points int64) {
	if err := e.rep.Credit(ctx, userID, points); err != nil {
		log.Printf("escrow: reputation credit for %s failed: %v", userID, err)
	}
}
