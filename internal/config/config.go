package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kiybot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Booking    BookingConfig    `yaml:"booking"`
	Tournament TournamentConfig `yaml:"tournament"`
	Admins     []int64          `yaml:"admins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled      bool               `yaml:"enabled"`
	Port         int                `yaml:"port"`
	HeaderAPIKey string             `yaml:"header_api_key"`
	APIKeys      []APIClientKey     `yaml:"api_keys"`
	RateLimit    APIRateLimitConfig `yaml:"rate_limit"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type GoogleConfig struct {
	CredentialsFile         string `yaml:"credentials_file"`
	ReservationsSpreadsheet string `yaml:"reservations_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type TournamentConfig struct {
	Date            string `yaml:"date"` // DD.MM.YYYY
	MaxParticipants int    `yaml:"max_participants"`
}

// DayHours — часы работы одного расписания. Close < Open означает
// закрытие после полуночи следующего календарного дня.
type DayHours struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// BookingConfig — бизнес-правила бронирования.
type BookingConfig struct {
	StepMinutes        int       `yaml:"step_minutes"`
	MinHours           int       `yaml:"min_hours"`
	MaxHours           int       `yaml:"max_hours"`
	HoldTimeoutMinutes int       `yaml:"hold_timeout_minutes"`
	SweepIntervalMin   int       `yaml:"sweep_interval_minutes"`
	MaxBookingDays     int       `yaml:"max_booking_days"`
	EarlyMorningCutoff int       `yaml:"early_morning_cutoff_hour"`
	BlackoutDates      []string  `yaml:"blackout_dates"` // YYYY-MM-DD
	RateLimitMessages  int       `yaml:"rate_limit_messages"`
	RateLimitWindowSec int       `yaml:"rate_limit_window"`
	Hours              WeekHours `yaml:"hours"`
}

// WeekHours — четыре недельных шаблона часов работы.
// Пн-Чт: weekday, Пт: friday, Сб: weekend, Вс: sunday.
type WeekHours struct {
	Weekday DayHours `yaml:"weekday"`
	Friday  DayHours `yaml:"friday"`
	Weekend DayHours `yaml:"weekend"`
	Sunday  DayHours `yaml:"sunday"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в проде переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Booking.MinHours > c.Booking.MaxHours {
		return fmt.Errorf("booking.min_hours %d exceeds max_hours %d", c.Booking.MinHours, c.Booking.MaxHours)
	}

	for _, h := range []DayHours{c.Booking.Hours.Weekday, c.Booking.Hours.Friday, c.Booking.Hours.Weekend, c.Booking.Hours.Sunday} {
		if _, err := ParseTimeOfDay(h.Open); err != nil {
			return fmt.Errorf("invalid open time %q: %w", h.Open, err)
		}
		if _, err := ParseTimeOfDay(h.Close); err != nil {
			return fmt.Errorf("invalid close time %q: %w", h.Close, err)
		}
	}

	for _, d := range c.Booking.BlackoutDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid blackout date %q: %w", d, err)
		}
	}

	return nil
}

// ValidateTables проверяет инвентарь столов из tables.yaml.
func ValidateTables(tables []models.Table) error {
	if len(tables) == 0 {
		return errors.New("at least one table is required")
	}
	tableIDs := make(map[int64]bool)
	for _, table := range tables {
		if table.ID == 0 {
			return fmt.Errorf("table %q has invalid ID 0", table.Name)
		}
		if tableIDs[table.ID] {
			return fmt.Errorf("duplicate table ID found: %d", table.ID)
		}
		tableIDs[table.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.HeaderAPIKey == "" {
		c.API.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.IntervalHours == 0 {
		c.Backup.IntervalHours = 24
	}

	b := &c.Booking
	if b.StepMinutes == 0 {
		b.StepMinutes = 60
	}
	if b.MinHours == 0 {
		b.MinHours = 1
	}
	if b.MaxHours == 0 {
		b.MaxHours = 4
	}
	if b.HoldTimeoutMinutes == 0 {
		b.HoldTimeoutMinutes = 10
	}
	if b.SweepIntervalMin == 0 {
		b.SweepIntervalMin = 2
	}
	if b.MaxBookingDays == 0 {
		b.MaxBookingDays = 7
	}
	if b.EarlyMorningCutoff == 0 {
		b.EarlyMorningCutoff = 6
	}
	if b.RateLimitMessages == 0 {
		b.RateLimitMessages = models.RateLimitMessages
	}
	if b.RateLimitWindowSec == 0 {
		b.RateLimitWindowSec = models.RateLimitWindow
	}
	if b.Hours.Weekday == (DayHours{}) {
		b.Hours.Weekday = DayHours{Open: "16:00", Close: "02:00"}
	}
	if b.Hours.Friday == (DayHours{}) {
		b.Hours.Friday = DayHours{Open: "16:00", Close: "04:00"}
	}
	if b.Hours.Weekend == (DayHours{}) {
		b.Hours.Weekend = DayHours{Open: "15:00", Close: "04:00"}
	}
	if b.Hours.Sunday == (DayHours{}) {
		b.Hours.Sunday = DayHours{Open: "15:00", Close: "02:00"}
	}

	if c.Tournament.MaxParticipants == 0 {
		c.Tournament.MaxParticipants = 16
	}
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// TimeOfDay — время суток без даты.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay разбирает строку вида "16:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("bad minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}
