package models

// Statistics summarizes a subject's completions in one track
type Statistics struct {
	SubjectID        string `json:"subject_id" db:"subject_id"`
	Track            string `json:"track" db:"track"`
	TotalCompletions int    `json:"total_completions" db:"total_completions"`
	CurrentStreak    int    `json:"current_streak" db:"-"` // consecutive days ending today or yesterday
	LastCompletedOn  string `json:"last_completed_on" db:"-"`
}
