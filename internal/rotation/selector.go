// Package rotation maps a day number onto a content item deterministically.
//
// Within one cycle of N days (N = bank size) every item is served exactly once. Each following
// cycle is the same walk rotated by a further Shift positions, so the order visibly changes from
// one cycle to the next while staying a pure function of the day number.
package rotation

import (
	"fmt"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/content"
	"github.com/example/dailylove/pkg/models"
)

// DefaultShift is K, the per-cycle rotation
const DefaultShift = 73

// DefaultRankWeights gives the top ranked tag three slots, the second two and the third one
// per tag cycle.
var DefaultRankWeights = []int{3, 2, 1}

// Selector implements the day -> item mapping
type Selector struct {
	// Shift is how many positions each new cycle is rotated by
	Shift int
	// RankWeights[i] is the number of slots the i-th ranked tag gets per tag cycle.
	// Only the first len(RankWeights) usable tags are scheduled.
	RankWeights []int
}

// NewSelector creates a selector with the default shift and rank weights
func NewSelector() *Selector {
	return &Selector{
		Shift:       DefaultShift,
		RankWeights: append([]int(nil), DefaultRankWeights...),
	}
}

// Validate checks the selector's tunables
func (s *Selector) Validate() error {
	if s.Shift < 1 {
		return apperr.Invalid("rotation shift must be positive, got %d", s.Shift)
	}
	if len(s.RankWeights) == 0 {
		return apperr.Invalid("at least one rank weight is required")
	}
	for i, w := range s.RankWeights {
		if w < 1 {
			return apperr.Invalid("rank weight %d must be positive, got %d", i+1, w)
		}
	}
	return nil
}

// Index maps a 1-based day onto a 1-based position in a bank of n items
func (s *Selector) Index(day, n int) (int, error) {
	if day < 1 {
		return 0, apperr.Invalid("day must be >= 1, got %d", day)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: cannot select from %d items", apperr.ErrEmptyContentBank, n)
	}
	cycle := (day - 1) / n
	position := (day - 1) % n
	// reduce before multiplying so huge day numbers cannot overflow
	offset := (cycle % n) * s.shiftFor(n) % n
	return (position+offset)%n + 1, nil
}

// shiftFor returns the effective shift for a bank of n items. A shift that is a multiple of n
// would make every cycle identical, so it is replaced by 1.
func (s *Selector) shiftFor(n int) int {
	k := s.Shift
	if k < 1 {
		k = DefaultShift
	}
	k %= n
	if k == 0 && n > 1 {
		k = 1
	}
	return k
}

// Select returns the item for day. When p names categories present in bank, selection is
// personalized over bank's sub-banks; otherwise the whole bank is used.
func (s *Selector) Select(bank *content.Bank, day int, p *models.PersonalizationContext) (models.ContentItem, error) {
	return s.SelectFrom(bank, bank, day, p)
}

// SelectFrom is Select with a separate personalized bank. tagged may be nil.
// Personalization that matches no sub-bank of tagged falls back to flat.
func (s *Selector) SelectFrom(flat, tagged *content.Bank, day int, p *models.PersonalizationContext) (models.ContentItem, error) {
	if day < 1 {
		return models.ContentItem{}, apperr.Invalid("day must be >= 1, got %d", day)
	}
	if flat.Len() == 0 {
		return models.ContentItem{}, fmt.Errorf("%w: %q", apperr.ErrEmptyContentBank, flat.Name())
	}

	if p != nil && tagged != nil {
		if sched := s.schedule(tagged, p.RankedTags); sched != nil {
			tag, tagDay := sched.resolve(day)
			sub := tagged.SubBank(tag)
			idx, err := s.Index(tagDay, sub.Len())
			if err != nil {
				return models.ContentItem{}, err
			}
			return sub.Get(idx)
		}
	}

	idx, err := s.Index(day, flat.Len())
	if err != nil {
		return models.ContentItem{}, err
	}
	return flat.Get(idx)
}

// TagFor reports which category personalized selection uses on day, or "" when selection
// would fall back to the unpersonalized bank.
func (s *Selector) TagFor(tagged *content.Bank, day int, p *models.PersonalizationContext) string {
	if day < 1 || p == nil {
		return ""
	}
	sched := s.schedule(tagged, p.RankedTags)
	if sched == nil {
		return ""
	}
	tag, _ := sched.resolve(day)
	return tag
}

func (s *Selector) weights() []int {
	if len(s.RankWeights) == 0 {
		return DefaultRankWeights
	}
	return s.RankWeights
}
