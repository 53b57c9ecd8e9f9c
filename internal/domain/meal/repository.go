package meal

import (
	"context"
	"time"
)

// Repository defines read access to meal records.
type Repository interface {
	// ListByUserBetween returns the user's meals with from <= Date < to.
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*Meal, error)
}
