package catalog

import (
	"context"
	"time"

	"marketbay/internal/seq"
)

// Events receives catalog notifications. A nil Events is a no-op.
type Events interface {
	ProductListed(p Product)
}

// Service owns product listings and the availability flag.
type Service struct {
	store  Store
	ids    *seq.Sequence
	events Events
}

func NewService(store Store, ids *seq.Sequence, events Events) *Service {
	return &Service{store: store, ids: ids, events: events}
}

// ListProduct records a new listing for the seller. Names are not
// required to be unique.
func (s *Service) ListProduct(ctx context.Context, sellerID, name string, category Category, price int64, metadata string) (uint64, error) {
	if price <= 0 {
		return 0, ErrInvalidPrice
	}
	if _, err := ParseCategory(string(category)); err != nil {
		return 0, err
	}

	p := Product{
		ID:        s.ids.Next(),
		SellerID:  sellerID,
		Name:      name,
		Category:  category,
		Price:     price,
		Available: true,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return 0, err
	}
	if s.events != nil {
		s.events.ProductListed(p)
	}
	return p.ID, nil
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id uint64) (Product, error) {
	return s.store.Get(ctx, id)
}

// GetByCategory returns every product in the category, available or
// not, in ascending id order.
func (s *Service) GetByCategory(ctx context.Context, raw string) ([]Product, error) {
	c, err := ParseCategory(raw)
	if err != nil {
		return nil, err
	}
	return s.store.ByCategory(ctx, c)
}

// GetBySeller returns the seller's products in listing order.
func (s *Service) GetBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	return s.store.BySeller(ctx, sellerID)
}

// SetAvailability flips the availability flag. Reserved for the
// settlement engine; listings never become available again once sold.
func (s *Service) SetAvailability(ctx context.Context, id uint64, available bool) error {
	return s.store.SetAvailability(ctx, id, available)
}
