package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
)

type memoryKey struct {
	subjectID string
	track     string
}

// MemoryStore is a process-local Store and CompletionLog
type MemoryStore struct {
	mu          sync.Mutex
	records     map[memoryKey]models.ProgressRecord
	completions map[memoryKey][]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[memoryKey]models.ProgressRecord),
		completions: make(map[memoryKey][]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, subjectID, track string) (models.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memoryKey{subjectID, track}]
	if !ok {
		return models.ProgressRecord{}, fmt.Errorf("progress %s/%s: %w", subjectID, track, apperr.ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, rec models.ProgressRecord) (models.ProgressRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey{rec.SubjectID, rec.Track}
	if existing, ok := s.records[k]; ok {
		return existing, false, nil
	}
	s.records[k] = rec
	return rec, true, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, prior, next models.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey{prior.SubjectID, prior.Track}
	current, ok := s.records[k]
	if !ok || current.CurrentDay != prior.CurrentDay || current.LastCompletionDate != prior.LastCompletionDate {
		return fmt.Errorf("progress %s/%s: %w", prior.SubjectID, prior.Track, apperr.ErrConflict)
	}
	s.records[k] = next
	if next.LastCompletionDate != "" && next.LastCompletionDate != prior.LastCompletionDate {
		s.completions[k] = append(s.completions[k], next.LastCompletionDate)
	}
	return nil
}

func (s *MemoryStore) CompletedDates(_ context.Context, subjectID, track string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dates := append([]string(nil), s.completions[memoryKey{subjectID, track}]...)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (s *MemoryStore) CountCompletions(_ context.Context, subjectID, track string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completions[memoryKey{subjectID, track}]), nil
}

// CountSubjects returns how many subjects have a record in each track
func (s *MemoryStore) CountSubjects(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for k := range s.records {
		counts[k.track]++
	}
	return counts, nil
}
