package analytics

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user aggregate not found")

// UpdateFunc computes the next aggregate from the current one.
// current is nil when no aggregate exists. Returning nil writes nothing.
// It may be called more than once when the transaction is retried, so it must not have side effects.
type UpdateFunc func(current *Aggregate) (*Aggregate, error)

// Repository stores user aggregates. Aggregates must only be mutated through Update.
type Repository interface {
	// Update runs fn inside a transaction scoped to the user's aggregate record,
	// retrying on write conflicts.
	Update(ctx context.Context, userID string, fn UpdateFunc) error
	Get(ctx context.Context, userID string) (*Aggregate, error)
}
