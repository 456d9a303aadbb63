package rotation

import "github.com/example/dailylove/internal/content"

// tagSchedule is one tag cycle: slots[i] is the index into tags served on slot i
type tagSchedule struct {
	tags    []string
	weights []int
	slots   []int
}

// schedule builds the tag cycle for ranked, keeping only the first tags that have content in
// tagged (duplicates skipped). It returns nil if no ranked tag has content.
func (s *Selector) schedule(tagged *content.Bank, ranked []string) *tagSchedule {
	weights := s.weights()
	seen := make(map[string]bool, len(ranked))
	tags := make([]string, 0, len(weights))
	for _, tag := range ranked {
		if len(tags) == len(weights) {
			break
		}
		if seen[tag] || tagged.SubBank(tag) == nil {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}

	w := weights[:len(tags)]
	return &tagSchedule{
		tags:    tags,
		weights: w,
		slots:   smoothWeightedRoundRobin(w),
	}
}

// resolve returns the tag for day and the day's position within that tag's own stream
func (ts *tagSchedule) resolve(day int) (string, int) {
	length := len(ts.slots)
	fullCycles := (day - 1) / length
	slot := (day - 1) % length
	ti := ts.slots[slot]

	seen := 0
	for i := 0; i <= slot; i++ {
		if ts.slots[i] == ti {
			seen++
		}
	}
	return ts.tags[ti], fullCycles*ts.weights[ti] + seen
}

// smoothWeightedRoundRobin spreads sum(weights) slots so that higher weights are interleaved
// rather than bunched. Ties go to the lower index.
func smoothWeightedRoundRobin(weights []int) []int {
	total := 0
	for _, w := range weights {
		total += w
	}
	current := make([]int, len(weights))
	slots := make([]int, 0, total)
	for len(slots) < total {
		best := 0
		for i, w := range weights {
			current[i] += w
			if current[i] > current[best] {
				best = i
			}
		}
		current[best] -= total
		slots = append(slots, best)
	}
	return slots
}
