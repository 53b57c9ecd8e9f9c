package meal

import (
	"errors"
	"fmt"
)

// EventType identifies which mutation of a meal record an Event describes.
type EventType string

const (
	EventCreated EventType = "meal.created"
	EventUpdated EventType = "meal.updated"
	EventDeleted EventType = "meal.deleted"
)

var (
	ErrUnknownEventType = errors.New("unknown meal event type")
	ErrMissingSnapshot  = errors.New("meal event is missing a required snapshot")
)

// Event is a committed mutation of a meal record.
// Created carries After, Deleted carries Before, Updated carries both.
type Event struct {
	Type   EventType `json:"type"`
	MealID string    `json:"mealId"`
	Before *Meal     `json:"before,omitempty"`
	After  *Meal     `json:"after,omitempty"`
}

// Validate checks that the snapshots required by the event type are present.
func (e Event) Validate() error {
	switch e.Type {
	case EventCreated:
		if e.After == nil {
			return fmt.Errorf("%s: %w (after)", e.Type, ErrMissingSnapshot)
		}
	case EventUpdated:
		if e.Before == nil || e.After == nil {
			return fmt.Errorf("%s: %w (before and after)", e.Type, ErrMissingSnapshot)
		}
	case EventDeleted:
		if e.Before == nil {
			return fmt.Errorf("%s: %w (before)", e.Type, ErrMissingSnapshot)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	return nil
}
