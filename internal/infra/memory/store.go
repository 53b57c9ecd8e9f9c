// Package memory provides an in-process store for tests and local dry-runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bitewise_backend/internal/domain/analytics"
	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/domain/user"
)

// Store implements user.Repository, meal.Repository and analytics.Repository.
// Aggregate updates hold the write lock for the whole read-modify-write, which gives
// the same serialization a database transaction would.
type Store struct {
	mu         sync.RWMutex
	users      map[string]user.User
	meals      map[string]meal.Meal
	aggregates map[string]analytics.Aggregate
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]user.User),
		meals:      make(map[string]meal.Meal),
		aggregates: make(map[string]analytics.Aggregate),
	}
}

// PutUser inserts or replaces a user, assigning an ID when empty.
func (s *Store) PutUser(u user.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u.ID
}

// PutMeal inserts or replaces a meal, assigning an ID when empty.
func (s *Store) PutMeal(m meal.Meal) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	s.meals[m.ID] = m
	return m.ID
}

func (s *Store) DeleteMeal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meals, id)
}

// User returns a copy of the stored user.
func (s *Store) User(id string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// ListAll implements user.Repository. Users are ordered by ID.
func (s *Store) ListAll(ctx context.Context) ([]*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ClearPushToken implements user.Repository. Unknown users are ignored.
func (s *Store) ClearPushToken(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.PushToken = ""
		s.users[userID] = u
	}
	return nil
}

// ListByUserBetween implements meal.Repository.
func (s *Store) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*meal.Meal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meals []*meal.Meal
	for _, m := range s.meals {
		if m.UserID != userID || m.Date.Before(from) || !m.Date.Before(to) {
			continue
		}
		m := m
		meals = append(meals, &m)
	}
	sort.Slice(meals, func(i, j int) bool { return meals[i].Date.Before(meals[j].Date) })
	return meals, nil
}

// Update implements analytics.Repository.
func (s *Store) Update(ctx context.Context, userID string, fn analytics.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *analytics.Aggregate
	if agg, ok := s.aggregates[userID]; ok {
		current = &agg
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		s.aggregates[userID] = *next
	}
	return nil
}

// Get implements analytics.Repository.
func (s *Store) Get(ctx context.Context, userID string) (*analytics.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggregates[userID]
	if !ok {
		return nil, analytics.ErrNotFound
	}
	return &agg, nil
}
