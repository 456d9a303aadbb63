package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/dailylove/internal/apperr"
	"github.com/example/dailylove/pkg/models"
	"github.com/jmoiron/sqlx"
)

// PersonalizationRepository stores ranked category preferences per subject.
// It implements daily.PersonalizationSource.
type PersonalizationRepository struct {
	db *sqlx.DB
}

// NewPersonalizationRepository creates a new repository instance
func NewPersonalizationRepository(db *sqlx.DB) *PersonalizationRepository {
	return &PersonalizationRepository{db: db}
}

type personalizationRow struct {
	SubjectID  string    `db:"subject_id"`
	RankedTags string    `db:"ranked_tags"`
	Source     string    `db:"source"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Save stores a personalization result, replacing any previous one for the subject
func (r *PersonalizationRepository) Save(ctx context.Context, result models.PersonalizationResult) error {
	tags := result.Context.RankedTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal ranked tags: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO personalization (subject_id, ranked_tags, source, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET
			ranked_tags = excluded.ranked_tags,
			source = excluded.source,
			updated_at = excluded.updated_at
	`)
	_, err = r.db.ExecContext(ctx, query, result.SubjectID, string(tagsJSON), result.Source, result.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save personalization: %w", err)
	}
	return nil
}

// Get returns the stored personalization result for a subject
func (r *PersonalizationRepository) Get(ctx context.Context, subjectID string) (*models.PersonalizationResult, error) {
	var row personalizationRow
	query := r.db.Rebind("SELECT subject_id, ranked_tags, source, updated_at FROM personalization WHERE subject_id = ?")
	err := r.db.GetContext(ctx, &row, query, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("personalization for %s: %w", subjectID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personalization: %w", err)
	}

	result := &models.PersonalizationResult{
		SubjectID: row.SubjectID,
		Source:    row.Source,
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.RankedTags), &result.Context.RankedTags); err != nil {
		return nil, fmt.Errorf("failed to parse ranked tags: %w", err)
	}
	return result, nil
}

// Personalization returns the subject's context for selection
func (r *PersonalizationRepository) Personalization(ctx context.Context, subjectID string) (*models.PersonalizationContext, error) {
	result, err := r.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &result.Context, nil
}
