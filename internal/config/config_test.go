package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "test_token"
database:
  path: "test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.Telegram.BotToken)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.HeaderAPIKey)

	b := cfg.Booking
	assert.Equal(t, 60, b.StepMinutes)
	assert.Equal(t, 1, b.MinHours)
	assert.Equal(t, 4, b.MaxHours)
	assert.Equal(t, 10, b.HoldTimeoutMinutes)
	assert.Equal(t, 2, b.SweepIntervalMin)
	assert.Equal(t, 7, b.MaxBookingDays)
	assert.Equal(t, 6, b.EarlyMorningCutoff)
	assert.Equal(t, DayHours{Open: "16:00", Close: "02:00"}, b.Hours.Weekday)
	assert.Equal(t, DayHours{Open: "16:00", Close: "04:00"}, b.Hours.Friday)
	assert.Equal(t, DayHours{Open: "15:00", Close: "04:00"}, b.Hours.Weekend)
	assert.Equal(t, DayHours{Open: "15:00", Close: "02:00"}, b.Hours.Sunday)

	assert.Equal(t, 16, cfg.Tournament.MaxParticipants)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("KIYBOT_TEST_TOKEN", "env_token")
	path := writeConfig(t, `
telegram:
  bot_token: "${KIYBOT_TEST_TOKEN}"
database:
  path: "test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env_token", cfg.Telegram.BotToken)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing token", "database:\n  path: \"test.db\"\n"},
		{"placeholder token", "telegram:\n  bot_token: \"YOUR_BOT_TOKEN_HERE\"\ndatabase:\n  path: \"test.db\"\n"},
		{"missing db path", "telegram:\n  bot_token: \"t\"\n"},
		{"bad hours", "telegram:\n  bot_token: \"t\"\ndatabase:\n  path: \"d\"\nbooking:\n  hours:\n    friday:\n      open: \"25:00\"\n      close: \"04:00\"\n"},
		{"min over max", "telegram:\n  bot_token: \"t\"\ndatabase:\n  path: \"d\"\nbooking:\n  min_hours: 5\n  max_hours: 4\n"},
		{"bad blackout", "telegram:\n  bot_token: \"t\"\ndatabase:\n  path: \"d\"\nbooking:\n  blackout_dates: [\"31.12.2026\"]\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestValidateTables(t *testing.T) {
	assert.Error(t, ValidateTables(nil))

	assert.Error(t, ValidateTables([]models.Table{{ID: 0, Name: "Без ID"}}))

	assert.Error(t, ValidateTables([]models.Table{
		{ID: 1, Name: "Стол 1"},
		{ID: 1, Name: "Дубль"},
	}))

	assert.NoError(t, ValidateTables([]models.Table{
		{ID: 1, Name: "Стол 1", IsActive: true},
		{ID: 2, Name: "Стол 2", IsActive: true},
	}))
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{Admins: []int64{1, 2}}
	assert.True(t, cfg.IsAdmin(1))
	assert.False(t, cfg.IsAdmin(3))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("16:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 16, Minute: 30}, tod)

	for _, bad := range []string{"", "16", "24:00", "16:60", "ab:cd"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}
