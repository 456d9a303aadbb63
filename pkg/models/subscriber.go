package models

import "time"

// Subscriber is a chat that receives daily content for a subject
type Subscriber struct {
	ChatID              int64     `json:"chat_id" db:"chat_id"`       // Telegram chat ID
	SubjectID           string    `json:"subject_id" db:"subject_id"` // user or couple the chat acts for
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	Track               string    `json:"track" db:"track"`
	Locale              string    `json:"locale" db:"locale"`
	Timezone            string    `json:"timezone" db:"timezone"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // local hour of day for reminders (0-23)
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the subscriber's time zone, falling back to fallback when unset or unknown
func (s Subscriber) Location(fallback *time.Location) *time.Location {
	if s.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
