package cli

import (
	"context"

	"github.com/example/dailylove/internal/config"
	"github.com/example/dailylove/internal/database"
	"github.com/example/dailylove/internal/progress"
	"github.com/jmoiron/sqlx"
)

// storage bundles the stores the service and bot need
type storage struct {
	progress    progress.Store
	completions progress.CompletionLog
	counter     interface {
		CountSubjects(ctx context.Context) (map[string]int, error)
	}
	subscribers     *database.SubscriberRepository
	personalization *database.PersonalizationRepository
	db              *sqlx.DB
}

// openStorage connects to the configured database. DB_TYPE=memory keeps progress in
// process memory and everything else in an in-memory sqlite database.
func openStorage(cfg config.Config) (*storage, error) {
	if cfg.DBType == "memory" {
		db, err := database.Connect(database.DriverSQLite, ":memory:")
		if err != nil {
			return nil, err
		}
		mem := progress.NewMemoryStore()
		return &storage{
			progress:        mem,
			completions:     mem,
			counter:         mem,
			subscribers:     database.NewSubscriberRepository(db),
			personalization: database.NewPersonalizationRepository(db),
			db:              db,
		}, nil
	}

	db, err := database.Connect(cfg.DBType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	stats := database.NewStatisticsRepository(db)
	return &storage{
		progress:        database.NewProgressRepository(db),
		completions:     stats,
		counter:         stats,
		subscribers:     database.NewSubscriberRepository(db),
		personalization: database.NewPersonalizationRepository(db),
		db:              db,
	}, nil
}

func (s *storage) Close() error {
	return s.db.Close()
}
