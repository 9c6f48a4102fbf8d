// Package seq provides the injected identifier sequences used by the
// catalog and the order ledger, replacing ambient global counters so
// tests get deterministic ids.
package seq

import "sync/atomic"

// Sequence hands out monotonically increasing uint64 ids starting at 1.
type Sequence struct {
	n atomic.Uint64
}

func New() *Sequence {
	return &Sequence{}
}

// NewAt returns a sequence whose next id is last+1, used to resume
// after the highest persisted id on startup.
func NewAt(last uint64) *Sequence {
	s := &Sequence{}
	s.n.Store(last)
	return s
}

func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}
