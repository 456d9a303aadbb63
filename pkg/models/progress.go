package models

import "time"

// DateLayout is the layout of date-only fields such as LastCompletionDate
const DateLayout = "2006-01-02"

// ProgressRecord tracks where a subject (user or couple) is in one content track
type ProgressRecord struct {
	SubjectID          string    `json:"subject_id" db:"subject_id"`
	Track              string    `json:"track" db:"track"`
	CurrentDay         int       `json:"current_day" db:"current_day"`            // next day-slot to serve, >= 1
	LastCompletionDate string    `json:"last_completion_date,omitempty" db:"-"` // YYYY-MM-DD, empty if never completed
	StartedAt          time.Time `json:"started_at" db:"started_at"`              // start of the elapsed-time unlock clock
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Date returns t's calendar date in t's own location
func Date(t time.Time) string {
	return t.Format(DateLayout)
}
