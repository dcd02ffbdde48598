package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// runColumnsV1 are the trend_runs columns created by the first migration.
var runColumnsV1 = []string{
	"id", "query", "max_results", "article_count", "cluster_count",
	"chunk_count", "failed_chunks", "duration_ms", "created_at",
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(conn *sql.DB, version int) error {
	// PRAGMA takes no bind parameters.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version %d: %w", version, err)
	}
	return nil
}

// tableColumns returns the column names of table. The set is empty when the
// table does not exist.
func tableColumns(q querier, table string) (map[string]bool, error) {
	rows, err := q.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// inferVersion reports which migrations an unversioned database already
// satisfies. Both trend tables with every v1 run column count as version 1,
// plus notified_at as version 2. Anything partial counts as 0 so the
// migrations fill in what is missing.
func inferVersion(conn *sql.DB) (int, error) {
	runs, err := tableColumns(conn, "trend_runs")
	if err != nil || len(runs) == 0 {
		return 0, err
	}
	entries, err := tableColumns(conn, "trend_entries")
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	for _, c := range runColumnsV1 {
		if !runs[c] {
			return 0, nil
		}
	}
	if runs["notified_at"] {
		return 2, nil
	}
	return 1, nil
}

// migrate brings the run store up to latestVersion, tracked in
// PRAGMA user_version. A store written by a newer build is refused.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	if current > latest {
		return fmt.Errorf("run store schema version %d is newer than supported version %d", current, latest)
	}

	if current == 0 {
		inferred, err := inferVersion(conn)
		if err != nil {
			return err
		}
		if inferred > 0 {
			log.Info().Int("version", inferred).Msg("found unversioned trend tables, stamping schema version")
			if err := setSchemaVersion(conn, inferred); err != nil {
				return err
			}
			current = inferred
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs m in a transaction and then records its version. The
// version is set outside the transaction because modernc/sqlite does not
// apply user_version inside one; every step is idempotent so a crash between
// the two only repeats m.
func applyMigration(conn *sql.DB, m Migration) error {
	log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return setSchemaVersion(conn, m.Version)
}

// addColumnIfMissing adds column to table unless it is already there.
func addColumnIfMissing(tx *sql.Tx, table, column, decl string) error {
	cols, err := tableColumns(tx, table)
	if err != nil {
		return err
	}
	if cols[column] {
		return nil
	}
	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}
