package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/internal/progress"
	"github.com/example/dailylove/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect("sqlite", filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDriverFor(t *testing.T) {
	for in, want := range map[string]string{
		"":           DriverSQLite,
		"sqlite":     DriverSQLite,
		"SQLite3":    DriverSQLite,
		"postgres":   DriverPostgres,
		"postgresql": DriverPostgres,
	} {
		got, err := DriverFor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := DriverFor("mysql")
	assert.Error(t, err)
}

func TestInitializeSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitializeSchema(db))
}

func TestProgressGetMissing(t *testing.T) {
	repo := NewProgressRepository(openTestDB(t))
	_, err := repo.Get(context.Background(), "u1", "love-actions")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProgressInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository(openTestDB(t))

	rec := models.ProgressRecord{SubjectID: "u1", Track: "love-actions", CurrentDay: 1, StartedAt: t0, UpdatedAt: t0}
	stored, created, err := repo.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, stored.CurrentDay)
	assert.Empty(t, stored.LastCompletionDate)
	assert.True(t, stored.StartedAt.Equal(t0))

	later := rec
	later.CurrentDay = 9
	later.StartedAt = t0.Add(time.Hour)
	stored, created, err = repo.InsertIfAbsent(ctx, later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, stored.CurrentDay)
	assert.True(t, stored.StartedAt.Equal(t0))

	// different track is a different record
	_, created, err = repo.InsertIfAbsent(ctx, models.ProgressRecord{SubjectID: "u1", Track: "devotional", CurrentDay: 1, StartedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestProgressCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewProgressRepository(db)
	stats := NewStatisticsRepository(db)

	prior, _, err := repo.InsertIfAbsent(ctx, models.ProgressRecord{SubjectID: "u1", Track: "t", CurrentDay: 1, StartedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)

	next := prior
	next.CurrentDay = 2
	next.LastCompletionDate = "2026-02-14"
	next.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, repo.CompareAndSwap(ctx, prior, next))

	got, err := repo.Get(ctx, "u1", "t")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentDay)
	assert.Equal(t, "2026-02-14", got.LastCompletionDate)

	// stale prior loses
	err = repo.CompareAndSwap(ctx, prior, next)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	dates, err := stats.CompletedDates(ctx, "u1", "t", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-14"}, dates)
}

func TestTrackerOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewProgressRepository(db)
	stats := NewStatisticsRepository(db)
	tracker := progress.NewTracker(repo, logger.NewNop())

	rec, advanced, err := tracker.Complete(ctx, "u1", "love-actions", 3, t0)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, 2, rec.CurrentDay)

	// same day is a no-op
	rec, advanced, err = tracker.Complete(ctx, "u1", "love-actions", 3, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 2, rec.CurrentDay)

	for i := 1; i <= 2; i++ {
		_, advanced, err = tracker.Complete(ctx, "u1", "love-actions", 3, t0.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.True(t, advanced)
	}
	rec, err = tracker.Load(ctx, "u1", "love-actions", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentDay, "wraps after the last day")

	total, err := stats.CountCompletions(ctx, "u1", "love-actions")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	dates, err := stats.CompletedDates(ctx, "u1", "love-actions", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-16", "2026-02-15"}, dates)

	counts, err := stats.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"love-actions": 1}, counts)
}

func TestConcurrentFirstLoadAcrossTrackers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewProgressRepository(db)

	// separate trackers behave like separate processes sharing one database
	var wg sync.WaitGroup
	results := make([]models.ProgressRecord, 10)
	errs := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr := progress.NewTracker(repo, logger.NewNop())
			results[i], errs[i] = tr.Load(ctx, "couple-1", "love-actions", t0.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].CurrentDay)
		assert.True(t, results[i].StartedAt.Equal(results[0].StartedAt))
	}

	var rows int
	require.NoError(t, db.Get(&rows, "SELECT COUNT(*) FROM progress"))
	assert.Equal(t, 1, rows)
}

func TestSubscriberRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository(openTestDB(t))
	repo.now = func() time.Time { return t0 }

	_, err := repo.GetByChatID(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sub := &models.Subscriber{
		ChatID:              42,
		SubjectID:           "tg:42",
		Username:            "ana",
		Track:               "love-actions",
		Locale:              "es",
		Timezone:            "Europe/Madrid",
		NotificationEnabled: true,
		NotificationHour:    9,
	}
	require.NoError(t, repo.Create(ctx, sub))
	assert.True(t, sub.CreatedAt.Equal(t0))

	// re-registering refreshes the profile but keeps settings
	again := &models.Subscriber{ChatID: 42, SubjectID: "tg:42", Username: "ana_b", Track: "devotional", NotificationHour: 20}
	require.NoError(t, repo.Create(ctx, again))
	assert.Equal(t, "ana_b", again.Username)
	assert.Equal(t, "love-actions", again.Track)
	assert.Equal(t, 9, again.NotificationHour)
	assert.True(t, again.NotificationEnabled)

	again.Track = "devotional"
	again.NotificationEnabled = false
	require.NoError(t, repo.Update(ctx, again))

	got, err := repo.GetByChatID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "devotional", got.Track)
	assert.False(t, got.NotificationEnabled)
	assert.Equal(t, "Europe/Madrid", got.Timezone)

	require.NoError(t, repo.Create(ctx, &models.Subscriber{ChatID: 7, SubjectID: "tg:7", Track: "love-actions", NotificationEnabled: true}))
	notifiable, err := repo.ListNotifiable(ctx)
	require.NoError(t, err)
	require.Len(t, notifiable, 1)
	assert.Equal(t, int64(7), notifiable[0].ChatID)

	err = repo.Update(ctx, &models.Subscriber{ChatID: 99, SubjectID: "tg:99"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPersonalizationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPersonalizationRepository(openTestDB(t))

	_, err := repo.Personalization(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, repo.Save(ctx, models.PersonalizationResult{
		SubjectID: "u1",
		Context:   models.PersonalizationContext{RankedTags: []string{"gifts", "touch"}},
		Source:    "quiz",
		UpdatedAt: t0,
	}))
	require.NoError(t, repo.Save(ctx, models.PersonalizationResult{
		SubjectID: "u1",
		Context:   models.PersonalizationContext{RankedTags: []string{"time", "words", "gifts"}},
		Source:    "quiz",
		UpdatedAt: t0.Add(time.Hour),
	}))

	pc, err := repo.Personalization(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "words", "gifts"}, pc.RankedTags)

	res, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "quiz", res.Source)
	assert.True(t, res.UpdatedAt.Equal(t0.Add(time.Hour)))
}
