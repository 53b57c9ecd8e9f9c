package firestoredb

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"bitewise_backend/internal/domain/meal"
)

type MealRepository struct {
	client *firestore.Client
}

func NewMealRepository(client *firestore.Client) *MealRepository {
	return &MealRepository{client: client}
}

// ListByUserBetween needs the composite index (userId ASC, date ASC) on meals.
func (r *MealRepository) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*meal.Meal, error) {
	docs, err := r.client.Collection(mealsCollection).
		Where(fieldMealOwner, "==", userID).
		Where(fieldMealDate, ">=", from).
		Where(fieldMealDate, "<", to).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing meals for user: %w", err)
	}

	meals := make([]*meal.Meal, 0, len(docs))
	for _, doc := range docs {
		var d mealDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("error decoding meal %s: %w", doc.Ref.ID, err)
		}
		meals = append(meals, &meal.Meal{
			ID:       doc.Ref.ID,
			UserID:   d.UserID,
			Date:     d.Date,
			Calories: d.Calories,
			Protein:  d.Protein,
			Carbs:    d.Carbs,
			Fat:      d.Fat,
		})
	}
	return meals, nil
}
