// Package progress persists each subject's position in a content track and implements the two
// advancement policies: explicit daily completion and elapsed-time unlocking.
package progress

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/pkg/models"
	"golang.org/x/sync/singleflight"
)

// Store persists progress records keyed by (subject, track).
type Store interface {
	// Get returns the record or an error wrapping apperr.ErrNotFound.
	Get(ctx context.Context, subjectID, track string) (models.ProgressRecord, error)
	// InsertIfAbsent atomically stores rec unless a record for its key exists, and returns
	// whichever record is stored afterwards. created reports whether rec was inserted.
	InsertIfAbsent(ctx context.Context, rec models.ProgressRecord) (stored models.ProgressRecord, created bool, err error)
	// CompareAndSwap replaces prior with next only if the stored record still has prior's
	// CurrentDay and LastCompletionDate; otherwise it returns an error wrapping apperr.ErrConflict.
	CompareAndSwap(ctx context.Context, prior, next models.ProgressRecord) error
}

// CompletionLog is implemented by stores that keep a history of completed days
type CompletionLog interface {
	// CompletedDates returns up to limit completion dates (YYYY-MM-DD), newest first.
	CompletedDates(ctx context.Context, subjectID, track string, limit int) ([]string, error)
	// CountCompletions returns the total number of completions.
	CountCompletions(ctx context.Context, subjectID, track string) (int, error)
}

const defaultMaxAttempts = 3

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:._-]{0,127}$`)

// ValidateID checks a subject ID or track name
func ValidateID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return apperr.Invalid("malformed %s %q", kind, id)
	}
	return nil
}

// Tracker serves and advances progress records
type Tracker struct {
	store       Store
	log         *logger.Logger
	loads       singleflight.Group
	maxAttempts int
}

// NewTracker creates a tracker over store
func NewTracker(store Store, log *logger.Logger) *Tracker {
	return &Tracker{
		store:       store,
		log:         log.With("component", "progress"),
		maxAttempts: defaultMaxAttempts,
	}
}

// Load returns the subject's record for track, creating it at day 1 with StartedAt = now
// on first access. Concurrent first loads converge on one stored record.
func (t *Tracker) Load(ctx context.Context, subjectID, track string, now time.Time) (models.ProgressRecord, error) {
	if err := ValidateID("subject id", subjectID); err != nil {
		return models.ProgressRecord{}, err
	}
	if err := ValidateID("track", track); err != nil {
		return models.ProgressRecord{}, err
	}

	rec, err := t.store.Get(ctx, subjectID, track)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.ProgressRecord{}, fmt.Errorf("failed to load progress: %w", err)
	}

	// every waiter on the key shares this insert; it must outlive the first caller's cancel
	shared := context.WithoutCancel(ctx)
	v, err, _ := t.loads.Do(track+"\x00"+subjectID, func() (interface{}, error) {
		stored, created, err := t.store.InsertIfAbsent(shared, models.ProgressRecord{
			SubjectID:  subjectID,
			Track:      track,
			CurrentDay: 1,
			StartedAt:  now.UTC(),
			UpdatedAt:  now.UTC(),
		})
		if err != nil {
			return nil, err
		}
		if created {
			t.log.Info("progress initialized", "subject_id", subjectID, "track", track)
		}
		return stored, nil
	})
	if err != nil {
		return models.ProgressRecord{}, fmt.Errorf("failed to initialize progress: %w", err)
	}
	return v.(models.ProgressRecord), nil
}

// Complete marks today's day-slot done and advances CurrentDay, wrapping to 1 after maxDay.
// It means "ensure completed today": if rec was already completed on now's calendar date it
// returns the record unchanged and false. A lost conditional write is re-evaluated
// against the fresh record. On error nothing is written.
func (t *Tracker) Complete(ctx context.Context, subjectID, track string, maxDay int, now time.Time) (models.ProgressRecord, bool, error) {
	if maxDay < 1 {
		return models.ProgressRecord{}, false, apperr.Invalid("max day must be >= 1, got %d", maxDay)
	}
	today := models.Date(now)

	for attempt := 1; ; attempt++ {
		prior, err := t.Load(ctx, subjectID, track, now)
		if err != nil {
			return models.ProgressRecord{}, false, err
		}
		if prior.LastCompletionDate == today {
			return prior, false, nil
		}

		next := prior
		next.CurrentDay = NextDay(prior.CurrentDay, maxDay)
		next.LastCompletionDate = today
		next.UpdatedAt = now.UTC()

		err = t.store.CompareAndSwap(ctx, prior, next)
		if err == nil {
			t.log.Info("day completed",
				"subject_id", subjectID,
				"track", track,
				"day", prior.CurrentDay,
				"next_day", next.CurrentDay,
			)
			return next, true, nil
		}
		if !apperr.IsRetryable(err) || attempt >= t.maxAttempts {
			return models.ProgressRecord{}, false, fmt.Errorf("failed to complete day %d: %w", prior.CurrentDay, err)
		}
		t.log.Debug("completion lost a race, re-evaluating", "subject_id", subjectID, "track", track, "attempt", attempt)
	}
}

// IsCompletedToday reports whether rec was completed on now's calendar date (in now's location)
func IsCompletedToday(rec models.ProgressRecord, now time.Time) bool {
	return rec.LastCompletionDate != "" && rec.LastCompletionDate == models.Date(now)
}

// NextDay returns the day after current, wrapping to 1 once maxDay is reached
func NextDay(current, maxDay int) int {
	if current >= maxDay {
		return 1
	}
	return current + 1
}

// PreviousDay returns the day before current, wrapping to maxDay before day 1
func PreviousDay(current, maxDay int) int {
	if current <= 1 {
		return maxDay
	}
	return current - 1
}
