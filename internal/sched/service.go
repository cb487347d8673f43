package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/pkg/logx"
)

// Service owns both timer loops behind one cron instance so they share the
// timezone and the per-user locks.
type Service struct {
	cfg      Config
	reminder *Reminder
	rotation *Rotation
	log      logx.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, st Store, d Deliverer, log logx.Logger) *Service {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	locks := newUserLocks()
	return &Service{
		cfg:      cfg,
		reminder: newReminder(cfg, st, d, locks, log),
		rotation: newRotation(cfg, st, d, locks, log),
		log:      log.With(logx.String("comp", "sched")),
	}
}

// Start registers both cron entries and begins ticking. Reminder fires at
// minute 00 of every wall-clock hour divisible by the interval; rotation
// fires at the configured HH:MM. Both run in cron's goroutines; per-user
// locks keep overlapping entries safe.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithLocation(s.cfg.Location))

	reminderSpec := fmt.Sprintf("0 */%d * * *", s.cfg.ReminderIntervalHours)
	if _, err := c.AddFunc(reminderSpec, s.runReminder); err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	rotationSpec := fmt.Sprintf("%d %d * * *", s.cfg.ResetMinute, s.cfg.ResetHour)
	if _, err := c.AddFunc(rotationSpec, s.runRotation); err != nil {
		return fmt.Errorf("schedule rotation: %w", err)
	}

	s.cron = c
	c.Start()
	s.log.Info("schedulers started",
		logx.String("reminder_spec", reminderSpec),
		logx.String("rotation_spec", rotationSpec),
		logx.String("timezone", s.cfg.Location.String()))
	return nil
}

// Stop halts the cron and waits for in-flight entries, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Service) runReminder() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.reminder.Tick(s.ctx); err != nil {
		s.log.Error("reminder tick aborted", logx.Err(err))
	}
}

func (s *Service) runRotation() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.rotation.Run(s.ctx); err != nil {
		s.log.Error("daily rotation aborted", logx.Err(err))
	}
}
