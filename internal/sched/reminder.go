package sched

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/domain"
	"remindbot/pkg/logx"
)

// Reminder nudges users about their undone tasks. Each tick walks all users
// sequentially; one user's failure is counted and logged, never propagated.
// The only error a tick returns is a failed user-list load, which aborts it
// until the next scheduled fire.
type Reminder struct {
	store   Store
	deliver Deliverer
	locks   *userLocks
	loc     *time.Location
	timeout time.Duration
	log     logx.Logger
	now     func() time.Time
}

func newReminder(cfg Config, st Store, d Deliverer, locks *userLocks, log logx.Logger) *Reminder {
	return &Reminder{
		store:   st,
		deliver: d,
		locks:   locks,
		loc:     cfg.Location,
		timeout: cfg.DeliveryTimeout,
		log:     log.With(logx.String("comp", "reminder")),
		now:     time.Now,
	}
}

// Tick runs one reminder pass.
func (r *Reminder) Tick(ctx context.Context) (TickOutcome, error) {
	var out TickOutcome

	users, err := r.store.ListUsersWithSettings(ctx)
	if err != nil {
		return out, fmt.Errorf("load users: %w", err)
	}
	now := r.now().In(r.loc)

	for _, u := range users {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Considered++

		switch {
		case u.Settings.MuteReminders:
			out.SkippedMuted++
			continue
		case !domain.WithinWindow(u.Settings.WorkStart, u.Settings.WorkEnd, now):
			out.SkippedWindow++
			continue
		}

		sent, err := r.remindUser(ctx, u.User.ID)
		switch {
		case err != nil:
			out.Failed++
			r.log.Warn("reminder failed",
				logx.Int64("user_id", u.User.ID), logx.Err(err))
		case !sent:
			out.SkippedEmpty++
		default:
			out.Sent++
		}
	}

	r.log.Info("reminder tick done",
		logx.Int("considered", out.Considered),
		logx.Int("sent", out.Sent),
		logx.Int("skipped_muted", out.SkippedMuted),
		logx.Int("skipped_window", out.SkippedWindow),
		logx.Int("skipped_empty", out.SkippedEmpty),
		logx.Int("failed", out.Failed))
	return out, nil
}

// remindUser reports whether a reminder was actually sent; a user with no
// undone tasks is left alone.
func (r *Reminder) remindUser(ctx context.Context, userID int64) (bool, error) {
	unlock := r.locks.lock(userID)
	defer unlock()

	tasks, err := r.store.ListUndoneTasks(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list undone: %w", err)
	}
	if len(tasks) == 0 {
		return false, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.deliver.SendReminder(sendCtx, userID, tasks); err != nil {
		return false, fmt.Errorf("deliver: %w", err)
	}
	return true, nil
}
