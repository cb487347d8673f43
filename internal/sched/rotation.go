package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remindbot/pkg/logx"
)

// Rotation runs the once-a-day report-and-reset pass. A duplicate fire on
// the same local calendar day is a no-op; the guard is in memory only, so a
// process restarted after its scheduled time may fire again that day, but an
// uninterrupted process never rotates twice. Every user gets a report, even
// one with nothing completed and no daily tasks.
type Rotation struct {
	store   Store
	deliver Deliverer
	engine  *ResetEngine
	locks   *userLocks
	loc     *time.Location
	timeout time.Duration
	log     logx.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastFired string // local calendar date, "2006-01-02"
}

func newRotation(cfg Config, st Store, d Deliverer, locks *userLocks, log logx.Logger) *Rotation {
	return &Rotation{
		store:   st,
		deliver: d,
		engine:  newResetEngine(st, cfg.Location),
		locks:   locks,
		loc:     cfg.Location,
		timeout: cfg.DeliveryTimeout,
		log:     log.With(logx.String("comp", "rotation")),
		now:     time.Now,
	}
}

// Run performs the rotation for the current local day. It returns a nil
// error with a zero outcome when the day was already rotated.
func (r *Rotation) Run(ctx context.Context) (RotationOutcome, error) {
	var out RotationOutcome

	now := r.now().In(r.loc)
	day := now.Format(time.DateOnly)

	r.mu.Lock()
	if r.lastFired == day {
		r.mu.Unlock()
		r.log.Debug("rotation already ran", logx.String("day", day))
		return out, nil
	}
	r.mu.Unlock()

	users, err := r.store.ListUsersWithSettings(ctx)
	if err != nil {
		return out, fmt.Errorf("load users: %w", err)
	}

	// Mark the day only once the user list is in hand; a failed load leaves
	// the guard clear.
	r.mu.Lock()
	r.lastFired = day
	r.mu.Unlock()

	for _, u := range users {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		reset, err := r.rotateUser(ctx, u.User.ID, now)
		if err != nil {
			out.Failed++
			r.log.Warn("rotation failed",
				logx.Int64("user_id", u.User.ID), logx.Err(err))
			continue
		}
		out.Reported++
		out.ResetTasks += reset
	}

	r.log.Info("daily rotation done",
		logx.String("day", day),
		logx.Int("reported", out.Reported),
		logx.Int("reset_tasks", out.ResetTasks),
		logx.Int("failed", out.Failed))
	return out, nil
}

func (r *Rotation) rotateUser(ctx context.Context, userID int64, asOf time.Time) (int, error) {
	unlock := r.locks.lock(userID)
	defer unlock()

	report, err := r.engine.ComputeAndReset(ctx, userID, asOf)
	if err != nil {
		return 0, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.deliver.SendDailyReport(sendCtx, userID, report); err != nil {
		return report.TotalDaily, fmt.Errorf("deliver report: %w", err)
	}
	return report.TotalDaily, nil
}
