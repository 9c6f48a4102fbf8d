// Package reputation keeps a monotonic point tally per participant.
// Points only ever accrue; there is no decrement and no upper bound.
package reputation

import (
	"context"
	"errors"
)

// ErrInvalidPoints is returned for non-positive credit amounts.
var ErrInvalidPoints = errors.New("reputation: invalid points")

// Notifier receives the updated total after each credit. Nil is a no-op.
type Notifier interface {
	ReputationUpdated(userID string, total, delta int64)
}

// Accumulator is the settlement-driven reputation sink.
type Accumulator interface {
	Credit(ctx context.Context, userID string, points int64) error
	Score(ctx context.Context, userID string) (int64, error)
}
