// internal/domain/meal/meal.go
package meal

import "time"

// Meal is one logged meal. Missing nutrition fields are zero.
type Meal struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Date     time.Time `json:"date"` // when the meal was eaten
	Calories float64   `json:"calories"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
}
