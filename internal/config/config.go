package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the runtime configuration, read from the environment and an optional .env file
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	DBType      string `env:"DB_TYPE"      envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"data/dailylove.db"`

	// TracksFile points at a tracks YAML file; empty uses the built-in catalogue
	TracksFile   string `env:"TRACKS_FILE"`
	DefaultTrack string `env:"DEFAULT_TRACK" envDefault:"love-actions"`

	LogMode string `env:"LOG_MODE" envDefault:"prod"`

	EnableScheduler       bool    `env:"ENABLE_SCHEDULER"        envDefault:"true"`
	NotificationStartHour int     `env:"NOTIFICATION_START_HOUR" envDefault:"4"`
	NotificationEndHour   int     `env:"NOTIFICATION_END_HOUR"   envDefault:"18"`
	DefaultTimezone       string  `env:"DEFAULT_TIMEZONE"        envDefault:"UTC"`
	AdminUserIDs          []int64 `env:"ADMIN_USER_IDS"          envSeparator:","`

	RotationShift int   `env:"ROTATION_SHIFT" envDefault:"73"`
	RankWeights   []int `env:"RANK_WEIGHTS"   envDefault:"3,2,1" envSeparator:","`
}

// Load reads envFile (when it exists) into the process environment and parses Config.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBType = strings.ToLower(cfg.DBType)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	switch c.DBType {
	case "sqlite", "sqlite3", "postgres", "postgresql", "memory":
	default:
		return fmt.Errorf("DB_TYPE: unsupported value %q", c.DBType)
	}
	if c.DBType != "memory" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.NotificationStartHour < 0 || c.NotificationStartHour > 23 {
		return fmt.Errorf("NOTIFICATION_START_HOUR: %d is not an hour of day", c.NotificationStartHour)
	}
	if c.NotificationEndHour < 0 || c.NotificationEndHour > 23 {
		return fmt.Errorf("NOTIFICATION_END_HOUR: %d is not an hour of day", c.NotificationEndHour)
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return fmt.Errorf("notification window %d-%d is empty", c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.RotationShift < 1 {
		return fmt.Errorf("ROTATION_SHIFT must be positive, got %d", c.RotationShift)
	}
	if len(c.RankWeights) == 0 {
		return errors.New("RANK_WEIGHTS must not be empty")
	}
	for _, w := range c.RankWeights {
		if w < 1 {
			return fmt.Errorf("RANK_WEIGHTS must be positive, got %v", c.RankWeights)
		}
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the default time zone for subscribers without one
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
