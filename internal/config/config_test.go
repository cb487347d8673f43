package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scheduler.ReminderIntervalHours)
	assert.Equal(t, "00:05", cfg.Scheduler.DailyResetAt)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "./data/remindbot.db", cfg.Storage.Path)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  tokne_typo: "x"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("ADMIN_IDS", "11,22")
	t.Setenv("ADMIN_USERNAMES", "boss")

	path := writeConfig(t, `
telegram:
  token: "file-token"
admin:
  protected_ids: [1]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.Equal(t, []int64{11, 22}, cfg.Admin.ProtectedIDs)
	assert.Equal(t, []string{"boss"}, cfg.Admin.ProtectedUsernames)
}

func TestValidateFatalErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing token", `
logging:
  level: info
`},
		{"bad timezone", `
telegram:
  token: "123:abc"
scheduler:
  timezone: "Mars/Olympus"
`},
		{"interval not dividing 24", `
telegram:
  token: "123:abc"
scheduler:
  reminder_interval_hours: 5
`},
		{"bad reset time", `
telegram:
  token: "123:abc"
scheduler:
  daily_reset_at: "24:00"
`},
		{"bad duration", `
telegram:
  token: "123:abc"
scheduler:
  delivery_timeout: "ten seconds"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	h, m, err := ParseHHMM("23:15")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 15, m)

	_, _, err = ParseHHMM("24:00")
	require.Error(t, err)
	_, _, err = ParseHHMM("7")
	require.Error(t, err)
	_, _, err = ParseHHMM("07:60")
	require.Error(t, err)
}
