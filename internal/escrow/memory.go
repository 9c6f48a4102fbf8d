package escrow

import (
	"context"
	"sync"
)

// MemoryStore keeps orders in insertion order, used by tests and local
// development.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []Order
	byID   map[uint64]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uint64]int)}
}

func (s *MemoryStore) Insert(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[o.ID] = len(s.orders)
	s.orders = append(s.orders, o)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return s.orders[i], nil
}

func (s *MemoryStore) ByUser(_ context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemoryStore) Settle(_ context.Context, id uint64, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return ErrOrderNotFound
	}
	if s.orders[i].Released {
		return ErrAlreadySettled
	}
	s.orders[i].Released = true
	s.orders[i].Confirmed = confirmed
	return nil
}

func (s *MemoryStore) MaxID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.orders) == 0 {
		return 0, nil
	}
	return s.orders[len(s.orders)-1].ID, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, o := range s.orders {
		st.Total++
		switch {
		case !o.Released:
			st.Held++
		case o.Confirmed:
			st.ConfirmedReleased++
		default:
			st.TimeoutReleased++
		}
	}
	return st, nil
}
