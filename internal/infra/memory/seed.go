package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/domain/user"
)

// seedFile mirrors the app's document fields so an export of a few
// Firestore documents can be replayed locally.
type seedFile struct {
	Users []struct {
		ID               string  `json:"id"`
		FCMToken         string  `json:"fcmToken"`
		DailyCalorieGoal float64 `json:"dailyCalorieGoal"`
		Username         string  `json:"username"`
	} `json:"users"`
	Meals []meal.Meal `json:"meals"`
}

// LoadSeed reads users and meals from JSON and returns how many of each were stored.
func (s *Store) LoadSeed(r io.Reader) (users, meals int, err error) {
	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return 0, 0, fmt.Errorf("invalid seed data: %w", err)
	}
	for _, u := range seed.Users {
		s.PutUser(user.User{ID: u.ID, PushToken: u.FCMToken, DailyCalorieGoal: u.DailyCalorieGoal, Username: u.Username})
	}
	for _, m := range seed.Meals {
		s.PutMeal(m)
	}
	return len(seed.Users), len(seed.Meals), nil
}

// LoadSeedFile is LoadSeed over a file on disk.
func (s *Store) LoadSeedFile(path string) (users, meals int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.LoadSeed(f)
}
