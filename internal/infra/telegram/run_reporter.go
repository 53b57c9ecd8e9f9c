package telegram

import (
	"context"
	"fmt"
	"strings"

	"bitewise_backend/internal/app"
	domainTelegram "bitewise_backend/internal/domain/telegram"
)

// RunReporter posts reminder run summaries to an operators' chat.
type RunReporter struct {
	client domainTelegram.Client
	chatID int64
}

func NewRunReporter(client domainTelegram.Client, chatID int64) *RunReporter {
	return &RunReporter{client: client, chatID: chatID}
}

// ReportRun implements app.RunReporter.
func (r *RunReporter) ReportRun(_ context.Context, report app.RunReport) error {
	if err := r.client.SendMessage(r.chatID, FormatRunReport(report)); err != nil {
		return fmt.Errorf("failed to send run report to chat %d: %w", r.chatID, err)
	}
	return nil
}

// FormatRunReport renders the report as plain text.
func FormatRunReport(report app.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Calorie reminder run %s\n", report.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Users: %d\n", report.Users)
	fmt.Fprintf(&b, "Sent: %d\n", report.Sent)
	fmt.Fprintf(&b, "Goal met: %d\n", report.GoalMet)
	fmt.Fprintf(&b, "Skipped (no token or goal): %d\n", report.Skipped)
	fmt.Fprintf(&b, "Failed: %d", report.Failed)
	if report.TokensCleared > 0 {
		fmt.Fprintf(&b, " (invalid tokens removed: %d)", report.TokensCleared)
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "\nDuration: %s", report.FinishedAt.Sub(report.StartedAt).Round(1e6))
	}
	return b.String()
}
