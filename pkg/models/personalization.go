package models

import "time"

// PersonalizationContext biases selection toward the subject's preferred categories.
// A nil context means "use the unpersonalized bank".
type PersonalizationContext struct {
	RankedTags []string `json:"ranked_tags"` // most preferred first
}

// PersonalizationResult is a stored personalization context and where it came from
type PersonalizationResult struct {
	SubjectID string                 `json:"subject_id" db:"subject_id"`
	Context   PersonalizationContext `json:"context" db:"-"`
	Source    string                 `json:"source" db:"source"` // e.g. "love-language-quiz"
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}
