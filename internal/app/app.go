// Package app assembles the bot: configuration, logging, storage, the admin
// registry, the Telegram transport, and the two schedulers. Start and Stop
// are the only lifecycle entry points; cmd/bot owns signals and exit codes.
package app

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/admin"
	"remindbot/internal/config"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/sched"
	"remindbot/internal/store"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

type App struct {
	cfgPath string
	manager *config.Manager

	logSvc *logx.Service
	log    logx.Logger

	db    *store.SQLite
	bot   *telegram.Bot
	sched *sched.Service
	sup   *supervisor.Supervisor
}

// New loads and validates the configuration and brings up logging. Any error
// here is fatal: the process has no business starting half-configured.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a := &App{
		cfgPath: cfgPath,
		manager: config.NewManager(cfgPath, cfg, log.With(logx.String("comp", "config"))),
		logSvc:  logSvc,
		log:     log,
	}
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.manager.Get()

	schedCfg, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("comp", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.db = db

	admins, err := admin.New(ctx, db,
		cfg.Admin.ProtectedIDs, cfg.Admin.ProtectedUsernames,
		a.log.With(logx.String("comp", "admin")))
	if err != nil {
		return fmt.Errorf("admin registry: %w", err)
	}

	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	bot, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: poll,
	}, db, admins, a.log)
	if err != nil {
		return err
	}
	a.bot = bot

	a.sched = sched.New(schedCfg, db, bot, a.log)
	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	a.sup.GoRestart("telegram.poll", func(ctx context.Context) error {
		bot.Poll(ctx)
		return nil
	}, supervisor.RestartBackoff(500*time.Millisecond, 10*time.Second), supervisor.RestartForever())

	a.sup.Go("config.watch", a.manager.Watch)
	a.sup.Go0("config.apply", a.applyReloads)

	a.log.Info("bot started",
		logx.String("db", cfg.Storage.Path),
		logx.String("timezone", schedCfg.Location.String()))
	return nil
}

// applyReloads consumes validated config reloads. Only the logging section is
// hot-applied; everything else is wired at Start and needs a restart.
func (a *App) applyReloads(ctx context.Context) {
	sub := a.manager.Subscribe(1)
	defer a.manager.Unsubscribe(sub)

	prev := a.manager.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))

			if cfg.Scheduler != prev.Scheduler || cfg.Telegram != prev.Telegram ||
				cfg.Storage != prev.Storage {
				a.log.Warn("scheduler/telegram/storage config changed; restart required to apply")
			}
			prev = cfg
		}
	}
}

// Stop shuts pieces down in reverse start order, each step bounded by ctx.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.sched != nil {
		keep(a.sched.Stop(ctx))
	}
	if a.sup != nil {
		keep(a.sup.Stop(ctx))
	}
	if a.db != nil {
		keep(a.db.Close())
	}

	a.log.Info("bot stopped", logx.Err(firstErr))
	_ = a.logSvc.Close()
	return firstErr
}

func schedulerConfig(cfg *config.Config) (sched.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return sched.Config{}, err
	}
	hour, minute, err := config.ParseHHMM(cfg.Scheduler.DailyResetAt)
	if err != nil {
		return sched.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault(
		"scheduler.delivery_timeout", cfg.Scheduler.DeliveryTimeout, 10*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	return sched.Config{
		Location:              loc,
		ReminderIntervalHours: cfg.Scheduler.ReminderIntervalHours,
		ResetHour:             hour,
		ResetMinute:           minute,
		DeliveryTimeout:       timeout,
	}, nil
}
