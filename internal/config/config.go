// Package config loads and validates the bot configuration: a YAML file with
// environment overrides for secrets and the protected admin set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`
}

type TelegramConfig struct {
	Token string `yaml:"token" env:"BOT_TOKEN"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `yaml:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level" env:"LOG_LEVEL"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Path string `yaml:"path" env:"DB_PATH"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `yaml:"busy_timeout"`
}

// SchedulerConfig controls both timer loops. All times are interpreted in
// Timezone; changing any of these requires a restart.
type SchedulerConfig struct {
	// Timezone is an IANA zone name ("Europe/Berlin"). Empty means UTC.
	Timezone string `yaml:"timezone"`
	// ReminderIntervalHours spaces reminder ticks on wall-clock hour
	// boundaries (default 2: 00:00, 02:00, ...). Must divide 24.
	ReminderIntervalHours int `yaml:"reminder_interval_hours"`
	// DailyResetAt is the local "HH:MM" of the daily rotation (default 00:05).
	DailyResetAt string `yaml:"daily_reset_at"`
	// DeliveryTimeout bounds a single user's delivery call (default 10s).
	DeliveryTimeout string `yaml:"delivery_timeout"`
}

// AdminConfig is the protected admin set. It is read once at startup and
// immutable for the process lifetime; identities listed here can never be
// revoked at runtime.
type AdminConfig struct {
	ProtectedIDs       []int64  `yaml:"protected_ids" env:"ADMIN_IDS" envSeparator:","`
	ProtectedUsernames []string `yaml:"protected_usernames" env:"ADMIN_USERNAMES" envSeparator:","`
}

const (
	DefaultReminderIntervalHours = 2
	DefaultDailyResetAt          = "00:05"
)

// Load reads the YAML file at path (strict: unknown keys are rejected),
// applies environment overrides on top, fills defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := unmarshalStrict(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshalStrict(b []byte, out *Config) error {
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./data/remindbot.db"
	}
	if strings.TrimSpace(c.Telegram.PollTimeout) == "" {
		c.Telegram.PollTimeout = "10s"
	}
	if c.Scheduler.ReminderIntervalHours == 0 {
		c.Scheduler.ReminderIntervalHours = DefaultReminderIntervalHours
	}
	if strings.TrimSpace(c.Scheduler.DailyResetAt) == "" {
		c.Scheduler.DailyResetAt = DefaultDailyResetAt
	}
	if strings.TrimSpace(c.Scheduler.DeliveryTimeout) == "" {
		c.Scheduler.DeliveryTimeout = "10s"
	}
}

// Validate checks everything that must abort startup when wrong: token,
// timezone, tick cadence, durations. It never mutates the config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (or BOT_TOKEN)")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	n := c.Scheduler.ReminderIntervalHours
	if n < 1 || n > 12 || 24%n != 0 {
		return fmt.Errorf("scheduler.reminder_interval_hours: %d must divide 24 (1..12)", n)
	}
	if _, _, err := ParseHHMM(c.Scheduler.DailyResetAt); err != nil {
		return fmt.Errorf("scheduler.daily_reset_at: %w", err)
	}
	if _, err := ParseDurationField("scheduler.delivery_timeout", c.Scheduler.DeliveryTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}

// Location resolves the scheduler timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

// ParseHHMM parses a wall-clock "HH:MM" string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// ParseDurationField parses an optional Go duration string; empty means 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
