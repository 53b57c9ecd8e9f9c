package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bitewise_backend/internal/domain/analytics"
)

type AnalyticsRepository struct {
	client *firestore.Client
}

func NewAnalyticsRepository(client *firestore.Client) *AnalyticsRepository {
	return &AnalyticsRepository{client: client}
}

// Update runs fn in a Firestore transaction. The client re-runs the whole
// transaction when the aggregate document changed underneath it.
// lastUpdated is always written as the server timestamp.
func (r *AnalyticsRepository) Update(ctx context.Context, userID string, fn analytics.UpdateFunc) error {
	ref := r.client.Collection(analyticsCollection).Doc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var current *analytics.Aggregate
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return fmt.Errorf("error reading user aggregate: %w", err)
			}
		} else {
			current, err = decodeAggregate(snap)
			if err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		if current == nil {
			return tx.Set(ref, map[string]interface{}{
				"userId":        userID,
				"totalCalories": next.Totals.Calories,
				"totalProtein":  next.Totals.Protein,
				"totalCarbs":    next.Totals.Carbs,
				"totalFat":      next.Totals.Fat,
				"totalMeals":    next.TotalMeals,
				"lastUpdated":   firestore.ServerTimestamp,
			})
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "totalCalories", Value: next.Totals.Calories},
			{Path: "totalProtein", Value: next.Totals.Protein},
			{Path: "totalCarbs", Value: next.Totals.Carbs},
			{Path: "totalFat", Value: next.Totals.Fat},
			{Path: "totalMeals", Value: next.TotalMeals},
			{Path: "lastUpdated", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return fmt.Errorf("user aggregate transaction failed: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) Get(ctx context.Context, userID string) (*analytics.Aggregate, error) {
	snap, err := r.client.Collection(analyticsCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, analytics.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user aggregate: %w", err)
	}
	return decodeAggregate(snap)
}

func decodeAggregate(snap *firestore.DocumentSnapshot) (*analytics.Aggregate, error) {
	var d aggregateDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("error decoding user aggregate %s: %w", snap.Ref.ID, err)
	}
	userID := d.UserID
	if userID == "" {
		userID = snap.Ref.ID
	}
	return &analytics.Aggregate{
		UserID:      userID,
		Totals:      analytics.Nutrition{Calories: d.TotalCalories, Protein: d.TotalProtein, Carbs: d.TotalCarbs, Fat: d.TotalFat},
		TotalMeals:  d.TotalMeals,
		LastUpdated: d.LastUpdated,
	}, nil
}
