// Package postgres archives runs in a shared Postgres database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillon/newslens/internal/storage"
)

var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	article_count INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	partial BOOLEAN NOT NULL,
	result JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_topic ON runs(topic);
`

// New connects to dsn and ensures the archive schema exists.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres archive: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	query := `
	INSERT INTO runs (
		run_id, topic, article_count, failed_count, partial, result, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := b.pool.Exec(ctx, query,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT run_id, topic, article_count, failed_count, partial, result, started_at, finished_at FROM runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Topic != "" {
		query += fmt.Sprintf(` AND topic = $%d`, paramCount)
		args = append(args, filter.Topic)
		paramCount++
	}
	if filter.Partial != nil {
		query += fmt.Sprintf(` AND partial = $%d`, paramCount)
		args = append(args, *filter.Partial)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND started_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY started_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
