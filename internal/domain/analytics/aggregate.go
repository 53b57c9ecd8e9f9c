// internal/domain/analytics/aggregate.go
package analytics

import (
	"time"

	"bitewise_backend/internal/domain/meal"
)

// Nutrition holds the four tracked nutrition values.
type Nutrition struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// FromMeal extracts the nutrition values of a meal.
func FromMeal(m *meal.Meal) Nutrition {
	return Nutrition{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
}

func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
	}
}

func (n Nutrition) Sub(o Nutrition) Nutrition {
	return n.Add(o.Neg())
}

func (n Nutrition) Neg() Nutrition {
	return Nutrition{Calories: -n.Calories, Protein: -n.Protein, Carbs: -n.Carbs, Fat: -n.Fat}
}

// Aggregate is the denormalized per-user record in user_analytics.
// Its totals equal the sums over the user's current meals; it is never floored at zero
// and never removed, even when TotalMeals drops to 0.
type Aggregate struct {
	UserID      string
	Totals      Nutrition
	TotalMeals  int64
	LastUpdated time.Time
}

// Delta is a change to apply to an Aggregate.
type Delta struct {
	Nutrition
	Meals int64
}

// ApplyTo returns a copy of agg with the delta added and LastUpdated set to now.
func (d Delta) ApplyTo(agg Aggregate, now time.Time) Aggregate {
	agg.Totals = agg.Totals.Add(d.Nutrition)
	agg.TotalMeals += d.Meals
	agg.LastUpdated = now
	return agg
}
