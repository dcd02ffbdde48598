package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "trend runs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS trend_runs (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    max_results INTEGER NOT NULL,
    article_count INTEGER DEFAULT 0,
    cluster_count INTEGER DEFAULT 0,
    chunk_count INTEGER DEFAULT 0,
    failed_chunks INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trend_entries (
    run_id TEXT NOT NULL REFERENCES trend_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL,
    relevance INTEGER NOT NULL CHECK(relevance BETWEEN 1 AND 5),
    sources TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_trend_runs_created ON trend_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_trend_runs_query ON trend_runs(query);
`)
			if err != nil {
				return err
			}
			// Hand-made trend_runs tables may lack the run counters.
			for _, c := range []string{"article_count", "cluster_count", "chunk_count", "failed_chunks", "duration_ms"} {
				if err := addColumnIfMissing(tx, "trend_runs", c, "INTEGER DEFAULT 0"); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "track run notifications",
		Up: func(tx *sql.Tx) error {
			return addColumnIfMissing(tx, "trend_runs", "notified_at", "TEXT")
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
