package quiz

import (
	"sync"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
)

// Step is what follows an accepted answer
type Step struct {
	// Index and Next are the next question; Next is nil once the quiz is finished.
	Index int
	Next  *Question
	// Result is set when the last question was answered.
	Result *models.PersonalizationContext
}

// Sessions tracks quizzes in progress, keyed by chat
type Sessions struct {
	mu      sync.Mutex
	quiz    *Quiz
	answers map[int64][]int
}

// NewSessions creates an empty session table for q
func NewSessions(q *Quiz) *Sessions {
	return &Sessions{quiz: q, answers: make(map[int64][]int)}
}

// Start begins (or restarts) a quiz for chatID and returns the first question
func (s *Sessions) Start(chatID int64) Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[chatID] = []int{}
	return s.quiz.Questions[0]
}

// Answer records option as the answer to question. Answers to anything but the current
// question of an active quiz are ignored (accepted=false), which absorbs taps on old buttons.
// An option the current question does not have is an invalid argument; the question stays open.
func (s *Sessions) Answer(chatID int64, question, option int) (step Step, accepted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers, active := s.answers[chatID]
	if !active || question != len(answers) {
		return Step{}, false, nil
	}
	if options := s.quiz.Questions[question].Options; option < 0 || option >= len(options) {
		return Step{}, false, apperr.Invalid("question %d has no option %d", question+1, option)
	}
	answers = append(answers, option)
	if len(answers) < s.quiz.Len() {
		s.answers[chatID] = answers
		next := s.quiz.Questions[len(answers)]
		return Step{Index: len(answers), Next: &next}, true, nil
	}

	delete(s.answers, chatID)
	result, err := s.quiz.Score(answers)
	if err != nil {
		return Step{}, true, err
	}
	return Step{Result: result}, true, nil
}

// Cancel drops any quiz in progress for chatID
func (s *Sessions) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, chatID)
}
