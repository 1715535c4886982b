package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens the SQLite database at path. Use ":memory:" for tests.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite writes serialize on a single connection; more than one open
	// connection just trades throughput for SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ SQLite database connected")

	return &DB{db}, nil
}

// Initialize creates all required tables. Idempotent, safe to call on
// every startup.
func (db *DB) Initialize() error {
	log.Println("🔍 Checking database schema...")

	schema := `
		CREATE TABLE IF NOT EXISTS curiosity_insights (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			origin        TEXT NOT NULL DEFAULT 'curiosity',
			seed_query    TEXT,
			tangent       TEXT NOT NULL,
			research      TEXT,
			insight       TEXT,
			quality_score REAL NOT NULL DEFAULT 0.0,
			kept          INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_insights_kept
			ON curiosity_insights (kept) WHERE kept = 1;

		CREATE VIRTUAL TABLE IF NOT EXISTS curiosity_insights_fts USING fts5(
			tangent,
			insight,
			seed_query,
			content='curiosity_insights',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS curiosity_insights_ai
		AFTER INSERT ON curiosity_insights BEGIN
			INSERT INTO curiosity_insights_fts(rowid, tangent, insight, seed_query)
			VALUES (new.id, new.tangent, new.insight, new.seed_query);
		END;

		CREATE TRIGGER IF NOT EXISTS curiosity_insights_ad
		AFTER DELETE ON curiosity_insights BEGIN
			INSERT INTO curiosity_insights_fts(curiosity_insights_fts, rowid, tangent, insight, seed_query)
			VALUES ('delete', old.id, old.tangent, old.insight, old.seed_query);
		END;
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("✅ Database initialized successfully")
	return nil
}
