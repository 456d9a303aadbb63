package bot

import (
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	// Track new subscribers start on
	DefaultTrack string
	// Local hour new subscribers get reminders at
	DefaultReminderHour int
	// Time zone for subscribers who haven't set one
	Location *time.Location
	// Seconds to long-poll for updates
	UpdateTimeout int
	// Users allowed to run admin commands
	AdminUserIDs []int64
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultTrack:        "love-actions",
		DefaultReminderHour: 9,
		Location:            time.UTC,
		UpdateTimeout:       60,
	}
}

func (c *Config) isAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
