package escrow

import (
	"errors"
	"time"
)

var (
	// ErrOrderNotFound is returned when no order exists for the given id.
	ErrOrderNotFound = errors.New("escrow: order not found")
	// ErrProductUnavailable is returned when placing an order on a product already sold.
	ErrProductUnavailable = errors.New("escrow: product unavailable")
	// ErrAlreadySettled is returned once an order has released funds.
	ErrAlreadySettled = errors.New("escrow: order already settled")
	// ErrTimeoutNotReached is returned when the delivery timeout has not elapsed.
	ErrTimeoutNotReached = errors.New("escrow: delivery timeout not reached")
	// ErrUnauthorized is returned when the caller lacks the required identity.
	ErrUnauthorized = errors.New("escrow: unauthorized")
	// ErrInvalidTimeout is returned for a non-positive delivery timeout.
	ErrInvalidTimeout = errors.New("escrow: invalid timeout")
)

// Settlement paths, recorded on the funds-released event.
const (
	PathConfirmed = "confirmed"
	PathTimeout   = "timeout"
)

// Reputation points credited per settlement path.
const (
	SellerConfirmPoints = 20
	BuyerConfirmPoints  = 10
	SellerTimeoutPoints = 10
)

// Order is a purchase held in escrow. Amount snapshots the product
// price at placement and never changes. Released is monotonic
// false->true; Confirmed is set only by the buyer-confirm path.
type Order struct {
	ID        uint64    `json:"id"`
	ProductID uint64    `json:"product_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Amount    int64     `json:"amount"`
	Confirmed bool      `json:"confirmed"`
	Released  bool      `json:"released"`
	CreatedAt time.Time `json:"created_at"`
}

// Clock supplies the time used for order timestamps and timeout checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
