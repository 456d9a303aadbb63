package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ProgressRepository stores progress records. It implements progress.Store.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

type progressRow struct {
	SubjectID          string         `db:"subject_id"`
	Track              string         `db:"track"`
	CurrentDay         int            `db:"current_day"`
	LastCompletionDate sql.NullString `db:"last_completion_date"`
	StartedAt          time.Time      `db:"started_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row progressRow) record() models.ProgressRecord {
	return models.ProgressRecord{
		SubjectID:          row.SubjectID,
		Track:              row.Track,
		CurrentDay:         row.CurrentDay,
		LastCompletionDate: row.LastCompletionDate.String,
		StartedAt:          row.StartedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Get returns the progress record for a subject and track
func (r *ProgressRepository) Get(ctx context.Context, subjectID, track string) (models.ProgressRecord, error) {
	query := r.db.Rebind(`
		SELECT subject_id, track, current_day, last_completion_date, started_at, updated_at
		FROM progress
		WHERE subject_id = ? AND track = ?
	`)
	var row progressRow
	err := r.db.GetContext(ctx, &row, query, subjectID, track)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProgressRecord{}, fmt.Errorf("progress %s/%s: %w", subjectID, track, apperr.ErrNotFound)
	}
	if err != nil {
		return models.ProgressRecord{}, fmt.Errorf("failed to get progress: %w", err)
	}
	return row.record(), nil
}

// InsertIfAbsent inserts rec unless the subject already has a record for the track, then
// returns the stored record
func (r *ProgressRepository) InsertIfAbsent(ctx context.Context, rec models.ProgressRecord) (models.ProgressRecord, bool, error) {
	query := r.db.Rebind(`
		INSERT INTO progress (subject_id, track, current_day, last_completion_date, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, track) DO NOTHING
	`)
	res, err := r.db.ExecContext(ctx, query,
		rec.SubjectID,
		rec.Track,
		rec.CurrentDay,
		nullString(rec.LastCompletionDate),
		rec.StartedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return models.ProgressRecord{}, false, fmt.Errorf("failed to insert progress: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.ProgressRecord{}, false, fmt.Errorf("failed to insert progress: %w", err)
	}

	stored, err := r.Get(ctx, rec.SubjectID, rec.Track)
	if err != nil {
		return models.ProgressRecord{}, false, err
	}
	return stored, inserted == 1, nil
}

// CompareAndSwap writes next only if the stored record still matches prior's day and
// completion date. A new completion date is also appended to the completions log in the
// same transaction.
func (r *ProgressRepository) CompareAndSwap(ctx context.Context, prior, next models.ProgressRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE progress SET
			current_day = ?,
			last_completion_date = ?,
			updated_at = ?
		WHERE subject_id = ? AND track = ?
			AND current_day = ?
			AND COALESCE(last_completion_date, '') = ?
	`),
		next.CurrentDay,
		nullString(next.LastCompletionDate),
		next.UpdatedAt.UTC(),
		prior.SubjectID,
		prior.Track,
		prior.CurrentDay,
		prior.LastCompletionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("progress %s/%s changed concurrently: %w", prior.SubjectID, prior.Track, apperr.ErrConflict)
	}

	if next.LastCompletionDate != "" && next.LastCompletionDate != prior.LastCompletionDate {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO completions (subject_id, track, day, completed_on, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (subject_id, track, completed_on) DO NOTHING
		`),
			prior.SubjectID,
			prior.Track,
			prior.CurrentDay,
			next.LastCompletionDate,
			next.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to log completion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}
