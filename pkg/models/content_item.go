package models

// LocalizedText maps a BCP 47 locale tag (e.g. "en", "pt-BR") to text in that locale.
type LocalizedText map[string]string

// ContentItem is a single entry of a content bank (a love action, a devotional, a poem)
type ContentItem struct {
	ID         int           `json:"id" yaml:"id"`                                     // 1-based position in its bank
	Category   string        `json:"category,omitempty" yaml:"category,omitempty"`     // personalization tag, e.g. "words"
	Difficulty string        `json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // easy, medium, hard
	Minutes    int           `json:"minutes,omitempty" yaml:"minutes,omitempty"`       // time estimate
	Title      LocalizedText `json:"title" yaml:"title"`
	Body       LocalizedText `json:"body" yaml:"body"`
}
