// Package events consumes meal change events from Kafka and hands them to the aggregate maintainer.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/domain/meal"
)

// EventTypeHeader optionally carries the event type when the payload omits it.
const EventTypeHeader = "event_type"

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded meal events.
type Handler interface {
	HandleMealEvent(context.Context, meal.Event) error
}

// Processor pulls meal events from Kafka, decodes them, and dispatches to a Handler.
// A message is committed only after it was handled. A failed message is retried in place
// until it succeeds, so no later offset of its partition is committed before it.
type Processor struct {
	reader  Reader
	handler Handler
	logger  logrus.FieldLogger

	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

const (
	defaultRetryBackoff    = 500 * time.Millisecond
	defaultMaxRetryBackoff = 30 * time.Second
)

func NewProcessor(reader Reader, handler Handler, logger logrus.FieldLogger) *Processor {
	return &Processor{
		reader:          reader,
		handler:         handler,
		logger:          logger,
		retryBackoff:    defaultRetryBackoff,
		maxRetryBackoff: defaultMaxRetryBackoff,
	}
}

// Run starts a blocking loop that processes messages until the context is cancelled
// or the reader is closed.
func (p *Processor) Run(ctx context.Context) error {
	fetchBackoff := p.retryBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return err
			}
			p.logger.WithError(err).WithField("backoff", fetchBackoff).Error("Fetch error")
			if err := sleep(ctx, fetchBackoff); err != nil {
				return err
			}
			fetchBackoff = min(fetchBackoff*2, p.maxRetryBackoff)
			continue
		}
		fetchBackoff = p.retryBackoff

		log := p.logger.WithFields(logrus.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset})

		event, decodeErr := DecodeMessage(msg)
		if decodeErr != nil {
			log.WithError(decodeErr).Error("Decode error, skipping message")
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				log.WithError(commitErr).Error("Commit error after decode failure")
			}
			continue
		}

		log = log.WithFields(logrus.Fields{"event_type": event.Type, "meal_id": event.MealID})
		if err := p.handleWithRetry(ctx, msg, event, log); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			log.WithError(commitErr).Error("Commit error")
		} else {
			recordProcessed(msg, event.Type)
		}
	}
}

// handleWithRetry calls the handler until it succeeds. It only gives up when ctx ends,
// leaving the message uncommitted for the next consumer of the partition.
func (p *Processor) handleWithRetry(ctx context.Context, msg kafka.Message, event meal.Event, log logrus.FieldLogger) error {
	backoff := p.retryBackoff
	for attempt := 1; ; attempt++ {
		err := p.handler.HandleMealEvent(ctx, event)
		if err == nil {
			return nil
		}
		recordHandlerError(msg.Topic, event.Type)
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "backoff": backoff}).Error("Handler error, retrying")

		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, p.maxRetryBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DecodeMessage parses a JSON meal event from the message value.
func DecodeMessage(msg kafka.Message) (meal.Event, error) {
	var event meal.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return meal.Event{}, fmt.Errorf("invalid meal event payload: %w", err)
	}
	if event.Type == "" {
		if v, ok := headerValue(msg, EventTypeHeader); ok {
			event.Type = meal.EventType(v)
		}
	}
	if event.MealID == "" {
		switch {
		case event.After != nil:
			event.MealID = event.After.ID
		case event.Before != nil:
			event.MealID = event.Before.ID
		}
	}
	if err := event.Validate(); err != nil {
		return meal.Event{}, err
	}
	return event, nil
}

// EncodeEvent builds the Kafka message for a meal event, keyed by owning user so
// events for one user stay in one partition and arrive in order.
func EncodeEvent(event meal.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode meal event: %w", err)
	}
	var owner string
	switch {
	case event.After != nil:
		owner = event.After.UserID
	case event.Before != nil:
		owner = event.Before.UserID
	}
	return kafka.Message{
		Key:     []byte(owner),
		Value:   value,
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(event.Type)}},
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
