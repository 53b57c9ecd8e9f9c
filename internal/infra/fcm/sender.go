package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"bitewise_backend/internal/domain/push"
)

// MessagingClient is the part of *messaging.Client the sender uses.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Sender implements push.Sender on Firebase Cloud Messaging.
type Sender struct {
	client MessagingClient
}

func NewSender(client MessagingClient) *Sender {
	return &Sender{client: client}
}

// NewSenderFromApp creates a Sender backed by the app's messaging client.
func NewSenderFromApp(ctx context.Context, app *firebase.App) (*Sender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return NewSender(client), nil
}

// Send delivers msg and returns the FCM message name.
func (s *Sender) Send(ctx context.Context, msg push.Message) (string, error) {
	id, err := s.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		if isInvalidToken(err) {
			return "", fmt.Errorf("fcm send: %w: %w", push.ErrInvalidToken, err)
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

// isInvalidToken matches the FCM codes for a malformed or unregistered token.
func isInvalidToken(err error) bool {
	return messaging.IsUnregistered(err) || errorutils.IsInvalidArgument(err)
}
