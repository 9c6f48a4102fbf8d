package escrow

import "sync"

// keyedMutex serializes transitions per order (and placements per
// product). Locks are never removed; the key space grows with the order
// count, which history retention requires anyway.
type keyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
