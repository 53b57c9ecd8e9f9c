// internal/app/aggregate_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"bitewise_backend/internal/domain/analytics"
	"bitewise_backend/internal/domain/meal"

	"github.com/sirupsen/logrus"
)

var ErrMealWithoutOwner = fmt.Errorf("meal has no owning user id")

// MissingAggregate decides what ApplyDelta does when the user has no aggregate yet.
type MissingAggregate int

const (
	// SkipIfMissing leaves an absent aggregate absent.
	SkipIfMissing MissingAggregate = iota
	// CreateIfMissing creates the aggregate with the delta applied to zero totals.
	CreateIfMissing
)

// AggregateService keeps each user's nutrition aggregate in step with their meals.
// Every mutation goes through ApplyDelta so concurrent events for the same user serialize
// on the aggregate record instead of overwriting each other.
type AggregateService struct {
	repo   analytics.Repository
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewAggregateService(repo analytics.Repository, logger logrus.FieldLogger) *AggregateService {
	return &AggregateService{repo: repo, logger: logger, now: time.Now}
}

// ApplyDelta adds delta to the user's aggregate in one transaction and reports whether
// anything was written.
func (s *AggregateService) ApplyDelta(ctx context.Context, userID string, delta analytics.Delta, missing MissingAggregate) (bool, error) {
	if userID == "" {
		return false, ErrMealWithoutOwner
	}

	var applied bool
	err := s.repo.Update(ctx, userID, func(current *analytics.Aggregate) (*analytics.Aggregate, error) {
		applied = false // fn may run again when the transaction retries
		base := analytics.Aggregate{UserID: userID}
		if current != nil {
			base = *current
		} else if missing == SkipIfMissing {
			return nil, nil
		}
		next := delta.ApplyTo(base, s.now())
		applied = true
		return &next, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update aggregate for user %s: %w", userID, err)
	}
	return applied, nil
}

// OnMealCreate adds a new meal to its owner's aggregate, creating the aggregate on first use.
func (s *AggregateService) OnMealCreate(ctx context.Context, m *meal.Meal) error {
	delta := analytics.Delta{Nutrition: analytics.FromMeal(m), Meals: 1}
	_, err := s.ApplyDelta(ctx, m.UserID, delta, CreateIfMissing)
	s.record(meal.EventCreated, true, err)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": m.UserID, "meal_id": m.ID}).Debug("Aggregate updated for created meal")
	return nil
}

// OnMealUpdate applies the per-field difference between the two snapshots.
// A missing aggregate is left alone: a create must always have been applied first.
func (s *AggregateService) OnMealUpdate(ctx context.Context, before, after *meal.Meal) error {
	log := s.logger.WithFields(logrus.Fields{"user_id": after.UserID, "meal_id": after.ID})
	if before.UserID != after.UserID {
		log.WithField("previous_user_id", before.UserID).Warn("Meal owner changed; applying the update to the new owner only")
	}

	delta := analytics.Delta{Nutrition: analytics.FromMeal(after).Sub(analytics.FromMeal(before))}
	applied, err := s.ApplyDelta(ctx, after.UserID, delta, SkipIfMissing)
	s.record(meal.EventUpdated, applied, err)
	if err != nil {
		return err
	}
	if !applied {
		log.Warn("No aggregate exists for updated meal; update ignored")
	}
	return nil
}

// OnMealDelete subtracts a removed meal. Totals may reach zero or go negative;
// the aggregate itself is kept.
func (s *AggregateService) OnMealDelete(ctx context.Context, m *meal.Meal) error {
	delta := analytics.Delta{Nutrition: analytics.FromMeal(m).Neg(), Meals: -1}
	applied, err := s.ApplyDelta(ctx, m.UserID, delta, SkipIfMissing)
	s.record(meal.EventDeleted, applied, err)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.WithFields(logrus.Fields{"user_id": m.UserID, "meal_id": m.ID}).Info("No aggregate exists for deleted meal; nothing to subtract")
	}
	return nil
}

// HandleMealEvent dispatches a meal event to the matching handler.
func (s *AggregateService) HandleMealEvent(ctx context.Context, e meal.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	switch e.Type {
	case meal.EventCreated:
		return s.OnMealCreate(ctx, e.After)
	case meal.EventUpdated:
		return s.OnMealUpdate(ctx, e.Before, e.After)
	default:
		return s.OnMealDelete(ctx, e.Before)
	}
}

func (s *AggregateService) record(eventType meal.EventType, applied bool, err error) {
	result := "applied"
	switch {
	case err != nil:
		result = "error"
	case !applied:
		result = "skipped"
	}
	recordAggregateUpdate(string(eventType), result)
}
