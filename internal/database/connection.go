package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered by the imported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DriverFor maps a DB_TYPE value onto a driver name
func DriverFor(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3", "":
		return DriverSQLite, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}
}

// Connect opens a database connection and makes sure the schema exists.
// For sqlite, dsn is a file path; its directory is created if needed.
func Connect(dbType, dsn string) (*sqlx.DB, error) {
	driver, err := DriverFor(dbType)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []struct {
	name string
	ddl  string
}{
	{"progress", `
		CREATE TABLE IF NOT EXISTS progress (
			subject_id TEXT NOT NULL,
			track TEXT NOT NULL,
			current_day INTEGER NOT NULL DEFAULT 1,
			last_completion_date TEXT,
			started_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (subject_id, track)
		)`},
	{"completions", `
		CREATE TABLE IF NOT EXISTS completions (
			subject_id TEXT NOT NULL,
			track TEXT NOT NULL,
			day INTEGER NOT NULL,
			completed_on TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (subject_id, track, completed_on)
		)`},
	{"subscribers", `
		CREATE TABLE IF NOT EXISTS subscribers (
			chat_id BIGINT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			track TEXT NOT NULL,
			locale TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			notification_hour INTEGER NOT NULL DEFAULT 9,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
	{"personalization", `
		CREATE TABLE IF NOT EXISTS personalization (
			subject_id TEXT PRIMARY KEY,
			ranked_tags TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`},
}

// InitializeSchema creates necessary tables if they don't exist
func InitializeSchema(db *sqlx.DB) error {
	for _, table := range schema {
		if _, err := db.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}
