// Package sqlite archives runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/quillon/newslens/internal/storage"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	article_count INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	partial BOOLEAN NOT NULL,
	result BLOB NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_topic ON runs(topic);
`

// New opens (and if needed creates) the archive at dsn.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	query := `
	INSERT INTO runs (
		run_id, topic, article_count, failed_count, partial, result, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		record.RunID,
		record.Topic,
		record.ArticleCount,
		record.FailedCount,
		record.Partial,
		record.Result,
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", record.RunID, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT run_id, topic, article_count, failed_count, partial, result, started_at, finished_at FROM runs WHERE 1=1`
	args := []any{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Partial != nil {
		query += ` AND partial = ?`
		args = append(args, *filter.Partial)
	}
	if filter.Since != nil {
		query += ` AND started_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY started_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		err := rows.Scan(
			&r.RunID, &r.Topic, &r.ArticleCount, &r.FailedCount,
			&r.Partial, &r.Result, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
