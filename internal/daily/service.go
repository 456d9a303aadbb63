// Package daily serves each subject's content for the day across the configured tracks.
package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/internal/progress"
	"github.com/example/dailylove/internal/rotation"
	"github.com/example/dailylove/pkg/models"
)

// PersonalizationSource supplies a subject's ranked categories, e.g. from a quiz result.
// It returns an error wrapping apperr.ErrNotFound when the subject has none.
type PersonalizationSource interface {
	Personalization(ctx context.Context, subjectID string) (*models.PersonalizationContext, error)
}

// Entry is the content a subject sees for one day of a track
type Entry struct {
	Track string
	Day   int
	Item  models.ContentItem
	// Tag is the category personalization picked, empty when unpersonalized.
	Tag string
	// Completed is true when Day is an explicit track's day the subject completed today.
	Completed bool
	// Horizon is the highest day the subject may open: the day served today, or the unlocked day.
	Horizon int
}

// ArchiveEntry is the result of opening a specific day
type ArchiveEntry struct {
	Entry
	Requested       int
	Locked          bool
	DaysUntilUnlock int
}

// ServiceConfig wires a Service
type ServiceConfig struct {
	Catalog         *Catalog
	Tracker         *progress.Tracker
	Selector        *rotation.Selector
	Personalization PersonalizationSource // optional
	Completions     progress.CompletionLog
	Logger          *logger.Logger
}

// Service combines tracks, progress and selection
type Service struct {
	catalog     *Catalog
	tracker     *progress.Tracker
	selector    *rotation.Selector
	prefs       PersonalizationSource
	completions progress.CompletionLog
	log         *logger.Logger
}

// NewService creates a service
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil || cfg.Tracker == nil {
		return nil, apperr.Invalid("catalog and tracker are required")
	}
	if cfg.Selector == nil {
		cfg.Selector = rotation.NewSelector()
	}
	if err := cfg.Selector.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Service{
		catalog:     cfg.Catalog,
		tracker:     cfg.Tracker,
		selector:    cfg.Selector,
		prefs:       cfg.Personalization,
		completions: cfg.Completions,
		log:         cfg.Logger.With("component", "daily"),
	}, nil
}

// Catalog returns the service's tracks
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Today returns the subject's content for today: the current day of an explicit track (or the
// day completed today, until midnight) or the latest unlocked day of an elapsed track.
func (s *Service) Today(ctx context.Context, subjectID, trackName string, now time.Time) (Entry, error) {
	track, rec, err := s.load(ctx, subjectID, trackName, now)
	if err != nil {
		return Entry{}, err
	}
	horizon := s.horizon(track, rec, now)
	entry, err := s.entry(ctx, track, subjectID, horizon, horizon)
	if err != nil {
		return Entry{}, err
	}
	entry.Completed = track.Policy == PolicyExplicit && progress.IsCompletedToday(rec, now)
	return entry, nil
}

// Complete marks today's item of an explicit track done. Completing twice on the same
// calendar day does not advance again; advanced reports whether this call moved the day.
func (s *Service) Complete(ctx context.Context, subjectID, trackName string, now time.Time) (models.ProgressRecord, bool, error) {
	track, err := s.catalog.Track(trackName)
	if err != nil {
		return models.ProgressRecord{}, false, err
	}
	if track.Policy != PolicyExplicit {
		return models.ProgressRecord{}, false, apperr.Invalid("track %q unlocks by time and cannot be completed", track.Name)
	}
	return s.tracker.Complete(ctx, subjectID, track.Name, track.MaxDay, now)
}

// PreviewNext returns the content the subject is served tomorrow without changing progress:
// the day after today's, whether or not today's is completed yet. For an elapsed
// track that has unlocked every day it returns an error wrapping apperr.ErrNotFound.
func (s *Service) PreviewNext(ctx context.Context, subjectID, trackName string, now time.Time) (Entry, error) {
	track, rec, err := s.load(ctx, subjectID, trackName, now)
	if err != nil {
		return Entry{}, err
	}
	horizon := s.horizon(track, rec, now)
	var next int
	switch track.Policy {
	case PolicyElapsed:
		if horizon >= track.MaxDay {
			return Entry{}, fmt.Errorf("track %q has no days left to unlock: %w", track.Name, apperr.ErrNotFound)
		}
		next = horizon + 1
	default:
		next = progress.NextDay(horizon, track.MaxDay)
	}
	return s.entry(ctx, track, subjectID, next, horizon)
}

// Archive opens a specific day. Days past the subject's horizon are locked: the entry holds
// the horizon day instead, with the number of days until the requested one opens.
func (s *Service) Archive(ctx context.Context, subjectID, trackName string, day int, now time.Time) (ArchiveEntry, error) {
	track, err := s.catalog.Track(trackName)
	if err != nil {
		return ArchiveEntry{}, err
	}
	if day < 1 || day > track.MaxDay {
		return ArchiveEntry{}, apperr.Invalid("day must be in [1, %d], got %d", track.MaxDay, day)
	}
	rec, err := s.tracker.Load(ctx, subjectID, track.Name, now)
	if err != nil {
		return ArchiveEntry{}, err
	}

	horizon := s.horizon(track, rec, now)
	out := ArchiveEntry{Requested: day}
	if day > horizon {
		out.Locked = true
		if track.Policy == PolicyElapsed {
			out.DaysUntilUnlock = progress.DaysUntilUnlock(rec, day, now, track.MaxDay)
		} else {
			// one completion per day is the fastest an explicit track can move
			out.DaysUntilUnlock = day - horizon
		}
	}

	out.Entry, err = s.entry(ctx, track, subjectID, progress.ClampDay(day, horizon), horizon)
	if err != nil {
		return ArchiveEntry{}, err
	}
	return out, nil
}

// Progress returns the raw progress record
func (s *Service) Progress(ctx context.Context, subjectID, trackName string, now time.Time) (models.ProgressRecord, error) {
	_, rec, err := s.load(ctx, subjectID, trackName, now)
	return rec, err
}

// Stats summarizes the subject's completions of a track
func (s *Service) Stats(ctx context.Context, subjectID, trackName string, now time.Time) (models.Statistics, error) {
	track, rec, err := s.load(ctx, subjectID, trackName, now)
	if err != nil {
		return models.Statistics{}, err
	}
	stats := models.Statistics{
		SubjectID:       subjectID,
		Track:           track.Name,
		LastCompletedOn: rec.LastCompletionDate,
	}
	if s.completions == nil {
		return stats, nil
	}

	stats.TotalCompletions, err = s.completions.CountCompletions(ctx, subjectID, track.Name)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("failed to count completions: %w", err)
	}
	dates, err := s.completions.CompletedDates(ctx, subjectID, track.Name, streakLookback)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("failed to load completions: %w", err)
	}
	stats.CurrentStreak = Streak(dates, now)
	return stats, nil
}

// streakLookback bounds how many completion dates a streak is computed from
const streakLookback = 3660

// Streak counts consecutive calendar days in dates (newest first, YYYY-MM-DD) ending today or
// yesterday in now's location.
func Streak(dates []string, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	expected := now
	if dates[0] != models.Date(now) {
		expected = now.AddDate(0, 0, -1)
	}
	streak := 0
	for _, d := range dates {
		if d != models.Date(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

func (s *Service) load(ctx context.Context, subjectID, trackName string, now time.Time) (*Track, models.ProgressRecord, error) {
	track, err := s.catalog.Track(trackName)
	if err != nil {
		return nil, models.ProgressRecord{}, err
	}
	rec, err := s.tracker.Load(ctx, subjectID, track.Name, now)
	if err != nil {
		return nil, models.ProgressRecord{}, err
	}
	return track, rec, nil
}

// horizon is the highest day the subject may currently open. On an explicit track that is the
// day served today: CurrentDay has already moved on once today's day is completed.
func (s *Service) horizon(track *Track, rec models.ProgressRecord, now time.Time) int {
	if track.Policy == PolicyElapsed {
		return progress.UnlockedDay(rec, now, track.MaxDay)
	}
	// a lowered max_day must not strand subjects past the end
	day := progress.ClampDay(rec.CurrentDay, track.MaxDay)
	if progress.IsCompletedToday(rec, now) {
		return progress.PreviousDay(day, track.MaxDay)
	}
	return day
}

func (s *Service) entry(ctx context.Context, track *Track, subjectID string, day, horizon int) (Entry, error) {
	p := s.personalization(ctx, track, subjectID)
	item, err := s.selector.SelectFrom(track.Bank, track.Personalized, day, p)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to select day %d of %q: %w", day, track.Name, err)
	}
	return Entry{
		Track:   track.Name,
		Day:     day,
		Item:    item,
		Tag:     s.selector.TagFor(track.Personalized, day, p),
		Horizon: horizon,
	}, nil
}

// personalization returns the subject's context for a personalized track. Lookup failures
// degrade to unpersonalized selection.
func (s *Service) personalization(ctx context.Context, track *Track, subjectID string) *models.PersonalizationContext {
	if track.Personalized == nil || s.prefs == nil {
		return nil
	}
	p, err := s.prefs.Personalization(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("personalization lookup failed", "subject_id", subjectID, "error", err)
		}
		return nil
	}
	return p
}
