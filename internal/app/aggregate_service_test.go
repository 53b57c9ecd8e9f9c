package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"bitewise_backend/internal/domain/analytics"
	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/infra/memory"
)

func newTestAggregateService(store *memory.Store) *AggregateService {
	logger, _ := logtest.NewNullLogger()
	svc := NewAggregateService(store, logger)
	svc.now = fixedClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	return svc
}

func TestMealLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestAggregateService(store)

	mealA := &meal.Meal{ID: "A", UserID: "U", Calories: 500, Protein: 20, Carbs: 50, Fat: 10}
	require.NoError(t, svc.OnMealCreate(ctx, mealA))

	agg, err := store.Get(ctx, "U")
	require.NoError(t, err)
	require.Equal(t, analytics.Nutrition{Calories: 500, Protein: 20, Carbs: 50, Fat: 10}, agg.Totals)
	require.EqualValues(t, 1, agg.TotalMeals)
	require.Equal(t, svc.now(), agg.LastUpdated)

	updated := *mealA
	updated.Calories = 600
	require.NoError(t, svc.OnMealUpdate(ctx, mealA, &updated))

	agg, err = store.Get(ctx, "U")
	require.NoError(t, err)
	require.Equal(t, 600.0, agg.Totals.Calories)
	require.EqualValues(t, 1, agg.TotalMeals)

	require.NoError(t, svc.OnMealDelete(ctx, &updated))

	agg, err = store.Get(ctx, "U")
	require.NoError(t, err, "aggregate must persist after the last meal is removed")
	require.Equal(t, analytics.Nutrition{}, agg.Totals)
	require.EqualValues(t, 0, agg.TotalMeals)
}

func TestCreateThenDeleteRestoresAggregate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestAggregateService(store)

	require.NoError(t, svc.OnMealCreate(ctx, &meal.Meal{ID: "m1", UserID: "U", Calories: 320, Protein: 12, Carbs: 41, Fat: 9}))
	before, err := store.Get(ctx, "U")
	require.NoError(t, err)

	m2 := &meal.Meal{ID: "m2", UserID: "U", Calories: 710, Protein: 33, Carbs: 80, Fat: 27}
	require.NoError(t, svc.OnMealCreate(ctx, m2))
	require.NoError(t, svc.OnMealDelete(ctx, m2))

	after, err := store.Get(ctx, "U")
	require.NoError(t, err)
	require.Equal(t, before.Totals, after.Totals)
	require.Equal(t, before.TotalMeals, after.TotalMeals)
}

func TestUpdateAndDeleteWithoutAggregateAreNoOps(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger, hook := logtest.NewNullLogger()
	svc := NewAggregateService(store, logger)

	m := &meal.Meal{ID: "m1", UserID: "U", Calories: 100}
	changed := *m
	changed.Calories = 250

	require.NoError(t, svc.OnMealUpdate(ctx, m, &changed))
	require.NotNil(t, hook.LastEntry())
	require.Contains(t, hook.LastEntry().Message, "No aggregate exists for updated meal")

	require.NoError(t, svc.OnMealDelete(ctx, m))

	_, err := store.Get(ctx, "U")
	require.ErrorIs(t, err, analytics.ErrNotFound)
}

func TestDeleteDoesNotFloorAtZero(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestAggregateService(store)

	m := &meal.Meal{ID: "m1", UserID: "U", Calories: 400, Protein: 10}
	require.NoError(t, svc.OnMealCreate(ctx, m))
	require.NoError(t, svc.OnMealDelete(ctx, m))
	require.NoError(t, svc.OnMealDelete(ctx, m)) // duplicate delivery

	agg, err := store.Get(ctx, "U")
	require.NoError(t, err)
	require.Equal(t, -400.0, agg.Totals.Calories)
	require.Equal(t, -10.0, agg.Totals.Protein)
	require.EqualValues(t, -1, agg.TotalMeals)
}

func TestApplyDeltaRejectsMissingOwner(t *testing.T) {
	svc := newTestAggregateService(memory.NewStore())

	err := svc.OnMealCreate(context.Background(), &meal.Meal{ID: "orphan", Calories: 100})
	require.ErrorIs(t, err, ErrMealWithoutOwner)
}

func TestApplyDeltaPropagatesStorageErrors(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	boom := errors.New("aborted: too much contention")
	svc := NewAggregateService(failingAggregateRepo{err: boom}, logger)

	err := svc.OnMealCreate(context.Background(), &meal.Meal{ID: "m1", UserID: "U", Calories: 100})
	require.ErrorIs(t, err, boom)
}

func TestApplyDeltaResetsAppliedOnRetry(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	repo := &retryingAggregateRepo{first: &analytics.Aggregate{UserID: "U"}}
	svc := NewAggregateService(repo, logger)

	// First attempt sees an aggregate, the retry sees none and must report nothing applied.
	applied, err := svc.ApplyDelta(context.Background(), "U", analytics.Delta{Meals: -1}, SkipIfMissing)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 2, repo.calls)
}

func TestHandleMealEventDispatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestAggregateService(store)

	m := &meal.Meal{ID: "m1", UserID: "U", Calories: 300, Protein: 15, Carbs: 30, Fat: 12}
	changed := *m
	changed.Carbs = 45

	require.NoError(t, svc.HandleMealEvent(ctx, meal.Event{Type: meal.EventCreated, MealID: "m1", After: m}))
	require.NoError(t, svc.HandleMealEvent(ctx, meal.Event{Type: meal.EventUpdated, MealID: "m1", Before: m, After: &changed}))

	agg, err := store.Get(ctx, "U")
	require.NoError(t, err)
	require.Equal(t, 45.0, agg.Totals.Carbs)

	require.NoError(t, svc.HandleMealEvent(ctx, meal.Event{Type: meal.EventDeleted, MealID: "m1", Before: &changed}))
	agg, err = store.Get(ctx, "U")
	require.NoError(t, err)
	require.EqualValues(t, 0, agg.TotalMeals)

	err = svc.HandleMealEvent(ctx, meal.Event{Type: "meal.archived", MealID: "m1", After: m})
	require.ErrorIs(t, err, meal.ErrUnknownEventType)
}

// Any sequence of creates, updates and deletes leaves the aggregate equal to the
// direct sum over the surviving meals.
func TestRandomEventSequenceMatchesRecomputedTotals(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		store := memory.NewStore()
		svc := newTestAggregateService(store)
		live := map[string]*meal.Meal{}
		next := 0

		// Seed one meal so updates and deletes have an aggregate to work on.
		first := randomMeal(rng, "m0")
		require.NoError(t, svc.OnMealCreate(ctx, first))
		live[first.ID] = first
		next++

		for step := 0; step < 200; step++ {
			switch op := rng.Intn(3); {
			case op == 0 || len(live) == 0:
				m := randomMeal(rng, fmt.Sprintf("m%d", next))
				next++
				require.NoError(t, svc.OnMealCreate(ctx, m))
				live[m.ID] = m
			case op == 1:
				old := pickMeal(rng, live)
				changed := randomMeal(rng, old.ID)
				require.NoError(t, svc.OnMealUpdate(ctx, old, changed))
				live[old.ID] = changed
			default:
				old := pickMeal(rng, live)
				require.NoError(t, svc.OnMealDelete(ctx, old))
				delete(live, old.ID)
			}
		}

		var want analytics.Nutrition
		for _, m := range live {
			want = want.Add(analytics.FromMeal(m))
		}
		agg, err := store.Get(ctx, "U")
		require.NoError(t, err)
		require.Equal(t, want, agg.Totals, "round %d", round)
		require.EqualValues(t, len(live), agg.TotalMeals, "round %d", round)
	}
}

// Whole-number values keep float sums exact.
func randomMeal(rng *rand.Rand, id string) *meal.Meal {
	return &meal.Meal{
		ID:       id,
		UserID:   "U",
		Calories: float64(rng.Intn(1200)),
		Protein:  float64(rng.Intn(80)),
		Carbs:    float64(rng.Intn(150)),
		Fat:      float64(rng.Intn(60)),
	}
}

func pickMeal(rng *rand.Rand, live map[string]*meal.Meal) *meal.Meal {
	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Strings(ids) // map order is random
	return live[ids[rng.Intn(len(ids))]]
}

type failingAggregateRepo struct {
	err error
}

func (r failingAggregateRepo) Update(context.Context, string, analytics.UpdateFunc) error {
	return r.err
}

func (r failingAggregateRepo) Get(context.Context, string) (*analytics.Aggregate, error) {
	return nil, r.err
}

// retryingAggregateRepo calls fn twice like a transaction retried after a conflict,
// with the aggregate disappearing between attempts.
type retryingAggregateRepo struct {
	first *analytics.Aggregate
	calls int
}

func (r *retryingAggregateRepo) Update(_ context.Context, _ string, fn analytics.UpdateFunc) error {
	r.calls++
	if _, err := fn(r.first); err != nil {
		return err
	}
	r.calls++
	_, err := fn(nil)
	return err
}

func (r *retryingAggregateRepo) Get(context.Context, string) (*analytics.Aggregate, error) {
	return nil, analytics.ErrNotFound
}
