package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

// ErrInvalidSince is returned by ListRuns when RunFilter.Since is not an
// RFC 3339 timestamp.
var ErrInvalidSince = errors.New("since must be an RFC 3339 timestamp")

// timeFormat keeps stored timestamps fixed-width so they sort as text.
const timeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t the way run timestamps are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// ParseTime parses a stored run timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// InsertRun stores a run and its ranked trends in one transaction. A missing
// ID or CreatedAt is filled in and written back to run.
func (db *DB) InsertRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = FormatTime(time.Now())
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO trend_runs
		(id, query, max_results, article_count, cluster_count, chunk_count, failed_chunks, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Query, run.MaxResults, run.ArticleCount, run.ClusterCount,
		run.ChunkCount, run.FailedChunks, run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, t := range run.Trends {
		sources, err := json.Marshal(t.Sources)
		if err != nil {
			return fmt.Errorf("encoding sources: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO trend_entries (run_id, position, name, description, category, relevance, sources)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, t.Name, t.Description, string(t.Category), t.Relevance, string(sources),
		)
		if err != nil {
			return fmt.Errorf("inserting trend %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	run.TrendCount = len(run.Trends)
	return nil
}

const runColumns = "r.id, r.query, r.max_results, r.article_count, r.cluster_count, r.chunk_count, r.failed_chunks, r.duration_ms, r.created_at, r.notified_at"

func scanRun(scan func(dest ...any) error, extra ...any) (*Run, error) {
	var r Run
	dest := []any{&r.ID, &r.Query, &r.MaxResults, &r.ArticleCount, &r.ClusterCount,
		&r.ChunkCount, &r.FailedChunks, &r.DurationMS, &r.CreatedAt, &r.NotifiedAt}
	if err := scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun returns a run with its trends, or nil if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM trend_runs r WHERE r.id = ?", id)
	run, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.Trends, err = db.getTrends(id)
	if err != nil {
		return nil, err
	}
	run.TrendCount = len(run.Trends)
	return run, nil
}

func (db *DB) getTrends(runID string) ([]trends.EnrichedTrend, error) {
	rows, err := db.conn.Query(
		`SELECT name, description, category, relevance, sources
		FROM trend_entries WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trends.EnrichedTrend
	for rows.Next() {
		var t trends.EnrichedTrend
		var description, sources sql.NullString
		var category string
		if err := rows.Scan(&t.Name, &description, &category, &t.Relevance, &sources); err != nil {
			return nil, err
		}
		t.Description = description.String
		t.Category = trends.Category(category)
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &t.Sources); err != nil {
				return nil, fmt.Errorf("decoding sources: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetLatestRun returns the newest run for exactly query, or nil.
func (db *DB) GetLatestRun(query string) (*Run, error) {
	var id string
	err := db.conn.QueryRow(
		"SELECT id FROM trend_runs WHERE query = ? ORDER BY created_at DESC, rowid DESC LIMIT 1", query,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.GetRun(id)
}

// ListRuns returns runs newest first without their trends.
func (db *DB) ListRuns(f RunFilter) ([]Run, error) {
	q := sq.Select(runColumns, "COUNT(e.position)").
		From("trend_runs r").
		LeftJoin("trend_entries e ON e.run_id = r.id").
		GroupBy("r.id").
		OrderBy("r.created_at DESC", "r.rowid DESC")

	if f.Query != "" {
		q = q.Where("LOWER(r.query) LIKE ?", "%"+strings.ToLower(f.Query)+"%")
	}
	if f.Since != "" {
		since, err := time.Parse(time.RFC3339, f.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSince, f.Since)
		}
		q = q.Where(sq.GtOrEq{"r.created_at": FormatTime(since)})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	rows, err := q.RunWith(db.conn).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var count int
		r, err := scanRun(rows.Scan, &count)
		if err != nil {
			return nil, err
		}
		r.TrendCount = count
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// MarkNotified records that a run's digest was delivered.
func (db *DB) MarkNotified(id string) error {
	res, err := db.conn.Exec("UPDATE trend_runs SET notified_at = ? WHERE id = ?", FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetStats returns counts over the whole history.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	var last sql.NullString
	if err := db.conn.QueryRow("SELECT COUNT(*), MAX(created_at) FROM trend_runs").Scan(&s.Runs, &last); err != nil {
		return nil, err
	}
	s.LastRunAt = last.String

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM trend_entries").Scan(&s.Trends); err != nil {
		return nil, err
	}

	err := db.conn.QueryRow(
		"SELECT category FROM trend_entries GROUP BY category ORDER BY COUNT(*) DESC, category LIMIT 1",
	).Scan(&s.TopCategory)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &s, nil
}
