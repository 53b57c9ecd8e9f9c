// internal/app/reminder_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/domain/push"
	"bitewise_backend/internal/domain/user"

	"github.com/sirupsen/logrus"
)

const (
	ReminderTitle       = "Calorie Reminder!"
	ReminderMessageType = "calorie_reminder"
)

// RunReport summarizes one reminder run.
type RunReport struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	Users         int
	Sent          int
	Skipped       int // missing token or goal
	GoalMet       int
	Failed        int // meal lookup or delivery failed
	TokensCleared int
}

// RunReporter receives the report of a finished run, e.g. to notify operators.
type RunReporter interface {
	ReportRun(ctx context.Context, report RunReport) error
}

// ReminderOption configures optional behaviour of the ReminderService.
type ReminderOption func(*ReminderService)

// WithClock overrides the source of "now", which decides what "today" is.
func WithClock(now func() time.Time) ReminderOption {
	return func(s *ReminderService) {
		s.now = now
	}
}

// WithLocation sets the time zone whose calendar day is used for today's meals.
func WithLocation(loc *time.Location) ReminderOption {
	return func(s *ReminderService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithRunReporter registers a reporter called after every run that got past listing users.
func WithRunReporter(r RunReporter) ReminderOption {
	return func(s *ReminderService) {
		s.reporter = r
	}
}

// ReminderService sends each user at most one reminder per run about the calories
// left from their daily goal. Repeated runs on the same day notify again.
type ReminderService struct {
	userRepo user.Repository
	mealRepo meal.Repository
	sender   push.Sender
	logger   logrus.FieldLogger
	reporter RunReporter
	now      func() time.Time
	location *time.Location
}

func NewReminderService(
	ur user.Repository,
	mr meal.Repository,
	sender push.Sender,
	logger logrus.FieldLogger,
	opts ...ReminderOption,
) *ReminderService {
	s := &ReminderService{
		userRepo: ur,
		mealRepo: mr,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every user sequentially. Per-user failures are logged and counted;
// only a failure to list users (or a cancelled context) aborts the run.
func (s *ReminderService) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{StartedAt: s.now()}
	s.logger.Info("Starting calorie reminder run")

	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list users, aborting reminder run")
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	report.Users = len(users)
	if len(users) == 0 {
		s.logger.Info("No users found")
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			s.logger.WithError(err).Warn("Reminder run interrupted")
			report.FinishedAt = s.now()
			return report, fmt.Errorf("reminder run interrupted after %d users: %w", report.Sent+report.Skipped+report.GoalMet+report.Failed, err)
		}
		s.remindUser(ctx, u, &report)
	}

	report.FinishedAt = s.now()
	s.logger.WithFields(logrus.Fields{
		"users":          report.Users,
		"sent":           report.Sent,
		"skipped":        report.Skipped,
		"goal_met":       report.GoalMet,
		"failed":         report.Failed,
		"tokens_cleared": report.TokensCleared,
	}).Info("Calorie reminder run completed")

	if s.reporter != nil {
		if err := s.reporter.ReportRun(ctx, report); err != nil {
			s.logger.WithError(err).Warn("Failed to publish reminder run report")
		}
	}
	return report, nil
}

func (s *ReminderService) remindUser(ctx context.Context, u *user.User, report *RunReport) {
	log := s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.DisplayName()})

	if !u.HasPushToken() || !u.HasCalorieGoal() {
		log.Info("Skipping user: missing push token or daily calorie goal")
		report.Skipped++
		recordReminderOutcome(outcomeSkipped)
		return
	}

	from, to := DayBounds(s.now(), s.location)
	meals, err := s.mealRepo.ListByUserBetween(ctx, u.ID, from, to)
	if err != nil {
		log.WithError(err).Error("Failed to fetch today's meals")
		report.Failed++
		recordReminderOutcome(outcomeFailed)
		return
	}

	consumed := 0.0
	for _, m := range meals {
		consumed += m.Calories
	}
	remaining := u.DailyCalorieGoal - consumed

	if remaining <= 0 {
		log.WithField("consumed", consumed).Info("User has met or exceeded their calorie goal. No notification sent.")
		report.GoalMet++
		recordReminderOutcome(outcomeGoalMet)
		return
	}

	msg := BuildReminderMessage(u.PushToken, remaining, u.DailyCalorieGoal)
	messageID, err := s.sender.Send(ctx, msg)
	if err != nil {
		log.WithError(err).Error("Error sending calorie reminder")
		report.Failed++
		recordReminderOutcome(outcomeFailed)

		if errors.Is(err, push.ErrInvalidToken) {
			log.Info("Removing invalid push token")
			if clearErr := s.userRepo.ClearPushToken(ctx, u.ID); clearErr != nil {
				log.WithError(clearErr).Error("Failed to remove invalid push token")
				return
			}
			report.TokensCleared++
			recordReminderOutcome(outcomeTokenCleared)
		}
		return
	}

	log.WithFields(logrus.Fields{"message_id": messageID, "remaining": remaining}).Info("Successfully sent calorie reminder")
	report.Sent++
	recordReminderOutcome(outcomeSent)
}

// BuildReminderMessage renders the reminder for a user with calories left of goal.
func BuildReminderMessage(token string, remaining, goal float64) push.Message {
	remainingStr := formatCalories(remaining)
	goalStr := formatCalories(goal)
	return push.Message{
		Token: token,
		Title: ReminderTitle,
		Body:  fmt.Sprintf("You have %s kcal left from your daily goal of %s kcal. Keep going!", remainingStr, goalStr),
		Data: map[string]string{
			"type":              ReminderMessageType,
			"remainingCalories": remainingStr,
			"dailyGoal":         goalStr,
		},
	}
}

// DayBounds returns the half-open interval [start of day, start of next day) containing now in loc.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return start, end
}

// formatCalories prints the shortest decimal form: 500 -> "500", 412.5 -> "412.5".
func formatCalories(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
