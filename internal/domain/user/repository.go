package user

import (
	"context"
)

// Repository defines the user operations needed by the reminder job.
type Repository interface {
	ListAll(ctx context.Context) ([]*User, error)
	// ClearPushToken removes the stored delivery token, e.g. after the push service rejected it.
	ClearPushToken(ctx context.Context, userID string) error
}
