package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StatisticsRepository reads the completions log. It implements progress.CompletionLog.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CompletedDates returns up to limit completion dates, newest first
func (r *StatisticsRepository) CompletedDates(ctx context.Context, subjectID, track string, limit int) ([]string, error) {
	query := r.db.Rebind(`
		SELECT completed_on FROM completions
		WHERE subject_id = ? AND track = ?
		ORDER BY completed_on DESC
		LIMIT ?
	`)
	var dates []string
	if err := r.db.SelectContext(ctx, &dates, query, subjectID, track, limit); err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}
	return dates, nil
}

// CountCompletions returns how many days the subject completed in the track
func (r *StatisticsRepository) CountCompletions(ctx context.Context, subjectID, track string) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM completions WHERE subject_id = ? AND track = ?")
	if err := r.db.GetContext(ctx, &count, query, subjectID, track); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// CountSubjects returns how many subjects have started each track
func (r *StatisticsRepository) CountSubjects(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, "SELECT track, COUNT(*) FROM progress GROUP BY track")
	if err != nil {
		return nil, fmt.Errorf("failed to count subjects: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var track string
		var n int
		if err := rows.Scan(&track, &n); err != nil {
			return nil, fmt.Errorf("failed to scan subject count: %w", err)
		}
		counts[track] = n
	}
	return counts, rows.Err()
}
