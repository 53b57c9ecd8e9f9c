// Package firestoredb implements the repositories over Cloud Firestore, the app's primary store.
package firestoredb

import (
	"time"
)

const (
	usersCollection     = "users"
	mealsCollection     = "meals"
	analyticsCollection = "user_analytics"
)

// Field names as written by the mobile app.
const (
	fieldPushToken   = "fcmToken"
	fieldCalorieGoal = "dailyCalorieGoal"
	fieldUsername    = "username"
	fieldMealOwner   = "userId"
	fieldMealDate    = "date"
)

type mealDoc struct {
	UserID   string    `firestore:"userId"`
	Date     time.Time `firestore:"date"`
	Calories float64   `firestore:"calories"`
	Protein  float64   `firestore:"protein"`
	Carbs    float64   `firestore:"carbs"`
	Fat      float64   `firestore:"fat"`
}

type aggregateDoc struct {
	UserID        string    `firestore:"userId"`
	TotalCalories float64   `firestore:"totalCalories"`
	TotalProtein  float64   `firestore:"totalProtein"`
	TotalCarbs    float64   `firestore:"totalCarbs"`
	TotalFat      float64   `firestore:"totalFat"`
	TotalMeals    int64     `firestore:"totalMeals"`
	LastUpdated   time.Time `firestore:"lastUpdated"`
}
