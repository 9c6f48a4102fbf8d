package escrow

import "context"

// Stats summarizes the order ledger for the admin surface.
type Stats struct {
	Total             int64 `json:"total"`
	Held              int64 `json:"held"`
	ConfirmedReleased int64 `json:"confirmed_released"`
	TimeoutReleased   int64 `json:"timeout_released"`
}

// Store persists orders. Settle must flip Released exactly once: a
// second call for the same order returns ErrAlreadySettled even if the
// engine-level guard was bypassed.
type Store interface {
	Insert(ctx context.Context, o Order) error
	Get(ctx context.Context, id uint64) (Order, error)
	ByUser(ctx context.Context, userID string) ([]Order, error)
	Settle(ctx context.Context, id uint64, confirmed bool) error
	MaxID(ctx context.Context) (uint64, error)
	Stats(ctx context.Context) (Stats, error)
}
