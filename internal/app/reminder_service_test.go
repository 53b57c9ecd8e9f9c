package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/domain/push"
	"bitewise_backend/internal/domain/user"
	"bitewise_backend/internal/infra/memory"
)

var reminderNow = time.Date(2026, 10, 15, 17, 30, 0, 0, time.UTC)

func TestReminderSendsRemainingCalories(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", PushToken: "tok-1", DailyCalorieGoal: 2000, Username: "ana"})
	store.PutMeal(meal.Meal{UserID: "u1", Date: reminderNow.Add(-9 * time.Hour), Calories: 650})
	store.PutMeal(meal.Meal{UserID: "u1", Date: reminderNow.Add(-2 * time.Hour), Calories: 837.5})

	sender := &stubSender{}
	svc := newTestReminderService(store, sender)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "tok-1", msg.Token)
	require.Equal(t, "Calorie Reminder!", msg.Title)
	require.Equal(t, "You have 512.5 kcal left from your daily goal of 2000 kcal. Keep going!", msg.Body)
	require.Equal(t, map[string]string{
		"type":              "calorie_reminder",
		"remainingCalories": "512.5",
		"dailyGoal":         "2000",
	}, msg.Data)

	require.Equal(t, 1, report.Users)
	require.Equal(t, 1, report.Sent)
}

func TestReminderOnlyCountsTodaysMeals(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", PushToken: "tok-1", DailyCalorieGoal: 1000})
	start, end := DayBounds(reminderNow, time.UTC)
	store.PutMeal(meal.Meal{UserID: "u1", Date: start, Calories: 100})
	store.PutMeal(meal.Meal{UserID: "u1", Date: start.Add(-time.Minute), Calories: 5000})
	store.PutMeal(meal.Meal{UserID: "u1", Date: end, Calories: 5000})
	store.PutMeal(meal.Meal{UserID: "u2", Date: reminderNow, Calories: 5000})

	sender := &stubSender{}
	_, err := newTestReminderService(store, sender).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	require.Equal(t, "900", sender.sent[0].Data["remainingCalories"])
}

func TestReminderSkipsWhenGoalMetOrExceeded(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "over", PushToken: "tok-1", DailyCalorieGoal: 2000})
	store.PutMeal(meal.Meal{UserID: "over", Date: reminderNow, Calories: 2200})
	store.PutUser(user.User{ID: "exact", PushToken: "tok-2", DailyCalorieGoal: 1500})
	store.PutMeal(meal.Meal{UserID: "exact", Date: reminderNow, Calories: 1500})

	sender := &stubSender{}
	report, err := newTestReminderService(store, sender).Run(context.Background())
	require.NoError(t, err)

	require.Empty(t, sender.sent)
	require.Equal(t, 2, report.GoalMet)
}

func TestReminderSkipsUsersMissingTokenOrGoal(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "no-token", DailyCalorieGoal: 2000})
	store.PutUser(user.User{ID: "no-goal", PushToken: "tok"})
	store.PutUser(user.User{ID: "nothing"})

	sender := &stubSender{}
	logger, hook := logtest.NewNullLogger()
	svc := NewReminderService(store, store, sender, logger, WithClock(fixedClock(reminderNow)), WithLocation(time.UTC))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Empty(t, sender.sent)
	require.Equal(t, 3, report.Skipped)
	for _, entry := range hook.AllEntries() {
		require.NotEqual(t, logrus.ErrorLevel, entry.Level, entry.Message)
	}
}

func TestReminderClearsInvalidToken(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", PushToken: "stale", DailyCalorieGoal: 2000})
	store.PutUser(user.User{ID: "u2", PushToken: "fresh", DailyCalorieGoal: 2000})

	sender := &stubSender{errs: map[string]error{
		"stale": fmt.Errorf("fcm: %w", push.ErrInvalidToken),
	}}
	report, err := newTestReminderService(store, sender).Run(context.Background())
	require.NoError(t, err)

	u1, _ := store.User("u1")
	require.Empty(t, u1.PushToken)
	u2, _ := store.User("u2")
	require.Equal(t, "fresh", u2.PushToken)

	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.TokensCleared)
	require.Equal(t, 1, report.Sent, "a failed user must not stop the batch")
}

func TestReminderKeepsTokenOnOtherDeliveryErrors(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", PushToken: "tok", DailyCalorieGoal: 2000})

	sender := &stubSender{errs: map[string]error{"tok": errors.New("quota exceeded")}}
	report, err := newTestReminderService(store, sender).Run(context.Background())
	require.NoError(t, err)

	u1, _ := store.User("u1")
	require.Equal(t, "tok", u1.PushToken)
	require.Equal(t, 1, report.Failed)
	require.Zero(t, report.TokensCleared)
}

func TestReminderContinuesWhenMealLookupFails(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "broken", PushToken: "tok-1", DailyCalorieGoal: 2000})
	store.PutUser(user.User{ID: "ok", PushToken: "tok-2", DailyCalorieGoal: 2000})

	meals := &failingMealRepo{Repository: store, failFor: "broken"}
	sender := &stubSender{}
	logger, _ := logtest.NewNullLogger()
	svc := NewReminderService(store, meals, sender, logger, WithClock(fixedClock(reminderNow)), WithLocation(time.UTC))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "tok-2", sender.sent[0].Token)
}

func TestReminderAbortsWhenUsersCannotBeListed(t *testing.T) {
	store := memory.NewStore()
	sender := &stubSender{}
	logger, hook := logtest.NewNullLogger()
	svc := NewReminderService(failingUserRepo{}, store, sender, logger)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, sender.sent)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestReminderPublishesRunReport(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(user.User{ID: "u1", PushToken: "tok", DailyCalorieGoal: 2000})
	reporter := &stubReporter{}
	logger, _ := logtest.NewNullLogger()
	svc := NewReminderService(store, store, &stubSender{}, logger,
		WithClock(fixedClock(reminderNow)), WithLocation(time.UTC), WithRunReporter(reporter))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reporter.reports, 1)
	require.Equal(t, 1, reporter.reports[0].Sent)
	require.Equal(t, reminderNow, reporter.reports[0].StartedAt)
}

func TestDayBoundsUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on Oct 15 is already Oct 16 in Tokyo.
	start, end := DayBounds(time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC), tokyo)

	require.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, tokyo), start)
	require.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, tokyo), end)
}

func newTestReminderService(store *memory.Store, sender push.Sender) *ReminderService {
	logger, _ := logtest.NewNullLogger()
	return NewReminderService(store, store, sender, logger, WithClock(fixedClock(reminderNow)), WithLocation(time.UTC))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type stubSender struct {
	sent []push.Message
	errs map[string]error
}

func (s *stubSender) Send(_ context.Context, msg push.Message) (string, error) {
	if err, ok := s.errs[msg.Token]; ok {
		return "", err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("projects/test/messages/%d", len(s.sent)), nil
}

type stubReporter struct {
	reports []RunReport
}

func (r *stubReporter) ReportRun(_ context.Context, report RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

type failingUserRepo struct{}

func (failingUserRepo) ListAll(context.Context) ([]*user.User, error) {
	return nil, errors.New("permission denied")
}

func (failingUserRepo) ClearPushToken(context.Context, string) error { return nil }

type failingMealRepo struct {
	meal.Repository
	failFor string
}

func (r *failingMealRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*meal.Meal, error) {
	if userID == r.failFor {
		return nil, errors.New("deadline exceeded")
	}
	return r.Repository.ListByUserBetween(ctx, userID, from, to)
}
