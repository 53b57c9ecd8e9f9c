// internal/domain/push/sender.go
package push

import (
	"context"
	"errors"
)

// ErrInvalidToken is wrapped by senders when the push service reports the
// delivery token as invalid or no longer registered.
var ErrInvalidToken = errors.New("push token is invalid or unregistered")

// Message is a single push notification to one device.
// Data values are strings because the delivery protocol only carries strings.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers push notifications. This keeps the application logic
// independent of the push provider's SDK.
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}
