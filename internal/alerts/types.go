package alerts

import "time"

// Task type constants, one per observable marketplace event.
const (
	TaskProductListed     = "event:product_listed"
	TaskOrderPlaced       = "event:order_placed"
	TaskOrderConfirmed    = "event:order_confirmed"
	TaskFundsReleased     = "event:funds_released"
	TaskReputationUpdated = "event:reputation_updated"
	TaskTimeoutUpdated    = "event:timeout_updated"
)

// ProductListedPayload announces a new listing.
type ProductListedPayload struct {
	ProductID uint64    `json:"product_id"`
	SellerID  string    `json:"seller_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int64     `json:"price"`
	SentAt    time.Time `json:"sent_at"`
}

// OrderPayload is shared by the order-placed and order-confirmed events.
type OrderPayload struct {
	OrderID   uint64    `json:"order_id"`
	ProductID uint64    `json:"product_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Amount    int64     `json:"amount"`
	SentAt    time.Time `json:"sent_at"`
}

// FundsReleasedPayload records a settlement and which path fired.
type FundsReleasedPayload struct {
	OrderID  uint64    `json:"order_id"`
	BuyerID  string    `json:"buyer_id"`
	SellerID string    `json:"seller_id"`
	Amount   int64     `json:"amount"`
	Path     string    `json:"path"` // confirmed | timeout
	SentAt   time.Time `json:"sent_at"`
}

// ReputationUpdatedPayload carries the new total after a credit.
type ReputationUpdatedPayload struct {
	UserID string    `json:"user_id"`
	Total  int64     `json:"total"`
	Delta  int64     `json:"delta"`
	SentAt time.Time `json:"sent_at"`
}

// TimeoutUpdatedPayload announces an admin change to the delivery timeout.
type TimeoutUpdatedPayload struct {
	Timeout string    `json:"timeout"`
	SentAt  time.Time `json:"sent_at"`
}
