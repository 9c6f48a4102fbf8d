package reputation

import (
	"context"
	"sync"
)

// Memory is the in-process accumulator used by tests and local dev.
type Memory struct {
	mu       sync.Mutex
	scores   map[string]int64
	notifier Notifier
}

func NewMemory(notifier Notifier) *Memory {
	return &Memory{scores: make(map[string]int64), notifier: notifier}
}

func (m *Memory) Credit(_ context.Context, userID string, points int64) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	m.mu.Lock()
	m.scores[userID] += points
	total := m.scores[userID]
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.ReputationUpdated(userID, total, points)
	}
	return nil
}

func (m *Memory) Score(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[userID], nil
}
