package catalog

import (
	"context"
	"sync"
)

// MemoryStore keeps products in insertion order. Ids are assigned
// monotonically by the service's sequence, so insertion order is also
// ascending id order.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
	byID     map[uint64]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uint64]int)}
}

func (s *MemoryStore) Insert(_ context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = len(s.products)
	s.products = append(s.products, p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return s.products[i], nil
}

func (s *MemoryStore) ByCategory(_ context.Context, c Category) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, p := range s.products {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) BySeller(_ context.Context, sellerID string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, p := range s.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetAvailability(_ context.Context, id uint64, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.products[i].Available = available
	return nil
}

func (s *MemoryStore) MaxID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.products) == 0 {
		return 0, nil
	}
	return s.products[len(s.products)-1].ID, nil
}
