package catalog

import "context"

// Store persists products. Implementations must return ErrNotFound for
// unknown ids.
type Store interface {
	Insert(ctx context.Context, p Product) error
	Get(ctx context.Context, id uint64) (Product, error)
	ByCategory(ctx context.Context, c Category) ([]Product, error)
	BySeller(ctx context.Context, sellerID string) ([]Product, error)
	SetAvailability(ctx context.Context, id uint64, available bool) error
	MaxID(ctx context.Context) (uint64, error)
}
