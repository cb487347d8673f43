package sched

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/domain"
)

// ResetEngine builds one user's daily performance report and rotates their
// daily tasks back to pending.
type ResetEngine struct {
	store Store
	loc   *time.Location
}

func newResetEngine(st Store, loc *time.Location) *ResetEngine {
	return &ResetEngine{store: st, loc: loc}
}

// ComputeAndReset reports on the local calendar day before asOf and then
// resets the user's daily tasks. Completions are counted by completed_at,
// so re-running after a reset yields the same report: the reset clears
// is_done, not the completion timestamps.
func (e *ResetEngine) ComputeAndReset(ctx context.Context, userID int64, asOf time.Time) (domain.PerformanceReport, error) {
	local := asOf.In(e.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
	yesterday := dayStart.AddDate(0, 0, -1)

	completed, err := e.store.CountCompletedInWindow(ctx, userID, yesterday, dayStart)
	if err != nil {
		return domain.PerformanceReport{}, fmt.Errorf("count completed: %w", err)
	}
	daily, err := e.store.ListDailyTasks(ctx, userID)
	if err != nil {
		return domain.PerformanceReport{}, fmt.Errorf("list daily: %w", err)
	}
	if _, err := e.store.ResetDailyTasks(ctx, userID, asOf); err != nil {
		return domain.PerformanceReport{}, fmt.Errorf("reset daily: %w", err)
	}

	return domain.PerformanceReport{
		CompletedYesterday: completed,
		TotalDaily:         len(daily),
	}, nil
}
