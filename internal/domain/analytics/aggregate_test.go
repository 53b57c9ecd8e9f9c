package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitewise_backend/internal/domain/meal"
)

func TestDeltaApplyTo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := Aggregate{UserID: "u1", Totals: Nutrition{Calories: 500, Protein: 20, Carbs: 50, Fat: 10}, TotalMeals: 1}

	next := Delta{Nutrition: Nutrition{Calories: 100}, Meals: 0}.ApplyTo(agg, now)

	require.Equal(t, Nutrition{Calories: 600, Protein: 20, Carbs: 50, Fat: 10}, next.Totals)
	require.EqualValues(t, 1, next.TotalMeals)
	require.Equal(t, now, next.LastUpdated)
	require.Equal(t, 500.0, agg.Totals.Calories, "input aggregate must not be modified")
}

func TestDeltaAllowsNegativeTotals(t *testing.T) {
	agg := Aggregate{UserID: "u1"}
	next := Delta{Nutrition: FromMeal(&meal.Meal{Calories: 300, Fat: 5}).Neg(), Meals: -1}.ApplyTo(agg, time.Now())

	require.Equal(t, -300.0, next.Totals.Calories)
	require.Equal(t, -5.0, next.Totals.Fat)
	require.EqualValues(t, -1, next.TotalMeals)
}

func TestNutritionSub(t *testing.T) {
	after := Nutrition{Calories: 600, Protein: 25, Carbs: 40, Fat: 10}
	before := Nutrition{Calories: 500, Protein: 20, Carbs: 50, Fat: 10}

	require.Equal(t, Nutrition{Calories: 100, Protein: 5, Carbs: -10, Fat: 0}, after.Sub(before))
}
