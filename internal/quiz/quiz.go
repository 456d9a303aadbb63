// Package quiz scores the love-language quiz into a ranked personalization context.
package quiz

import (
	"sort"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
)

// Source is recorded alongside stored quiz results
const Source = "love-language-quiz"

// Love-language categories, in canonical order. Ties in a score keep this order.
const (
	Words   = "words"
	Time    = "time"
	Gifts   = "gifts"
	Service = "service"
	Touch   = "touch"
)

// Categories lists every category in canonical order
var Categories = []string{Words, Time, Gifts, Service, Touch}

// Option is one answer; choosing it counts toward Category
type Option struct {
	Text     string
	Category string
}

// Question is a single quiz question
type Question struct {
	Prompt  string
	Options []Option
}

// Quiz is an ordered set of questions
type Quiz struct {
	Questions []Question
}

// Default returns the built-in love-language quiz
func Default() *Quiz {
	return &Quiz{Questions: []Question{
		{
			Prompt: "After a hard day, what helps most?",
			Options: []Option{
				{Text: "Hearing that they are proud of me", Category: Words},
				{Text: "An evening together, just us", Category: Time},
				{Text: "They handle dinner without asking", Category: Service},
				{Text: "A long hug", Category: Touch},
			},
		},
		{
			Prompt: "Which surprise would you treasure?",
			Options: []Option{
				{Text: "A small thoughtful present", Category: Gifts},
				{Text: "A letter about what I mean to them", Category: Words},
				{Text: "A planned day out together", Category: Time},
			},
		},
		{
			Prompt: "You feel most loved when your partner...",
			Options: []Option{
				{Text: "helps with something I was dreading", Category: Service},
				{Text: "holds my hand in public", Category: Touch},
				{Text: "remembers something I mentioned and brings it home", Category: Gifts},
				{Text: "puts their phone away to listen", Category: Time},
			},
		},
		{
			Prompt: "What would hurt most to go without?",
			Options: []Option{
				{Text: "Compliments and encouragement", Category: Words},
				{Text: "Physical closeness", Category: Touch},
				{Text: "Help around the house", Category: Service},
				{Text: "Tokens on special days", Category: Gifts},
			},
		},
		{
			Prompt: "Pick a perfect anniversary.",
			Options: []Option{
				{Text: "A weekend away with no plans", Category: Time},
				{Text: "A gift they chose for months", Category: Gifts},
				{Text: "A speech in front of friends", Category: Words},
				{Text: "A massage and a slow morning", Category: Touch},
				{Text: "They take care of every detail", Category: Service},
			},
		},
	}}
}

// Len returns the number of questions
func (q *Quiz) Len() int {
	return len(q.Questions)
}

// Score turns answers (one option index per question, in order) into ranked tags. Only
// categories that were chosen at least once are ranked.
func (q *Quiz) Score(answers []int) (*models.PersonalizationContext, error) {
	if len(answers) != len(q.Questions) {
		return nil, apperr.Invalid("expected %d answers, got %d", len(q.Questions), len(answers))
	}

	counts := make(map[string]int)
	for i, a := range answers {
		options := q.Questions[i].Options
		if a < 0 || a >= len(options) {
			return nil, apperr.Invalid("answer %d to question %d is out of range", a, i+1)
		}
		counts[options[a].Category]++
	}

	order := make(map[string]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}
	ranked := make([]string, 0, len(counts))
	for c := range counts {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		ri, rj := rank(order, ranked[i]), rank(order, ranked[j])
		if ri != rj {
			return ri < rj
		}
		return ranked[i] < ranked[j]
	})
	return &models.PersonalizationContext{RankedTags: ranked}, nil
}

// rank places categories outside Categories after the canonical ones
func rank(order map[string]int, category string) int {
	if i, ok := order[category]; ok {
		return i
	}
	return len(order)
}
