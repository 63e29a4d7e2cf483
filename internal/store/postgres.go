package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipindex/harvester/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MirrorConfig controls the Postgres connection pool used for the record
// mirror.
type MirrorConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Mirror upserts catalog records into Postgres. It is a best-effort replica
// of the snapshot, never the source of truth.
type Mirror struct {
	pool  execCloser
	table string
}

// NewMirror creates a Postgres-backed Mirror using the provided config.
func NewMirror(ctx context.Context, cfg MirrorConfig) (*Mirror, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Mirror{pool: pool, table: table}, nil
}

// NewMirrorWithPool constructs a Mirror from an existing pool (primarily for
// testing).
func NewMirrorWithPool(pool execCloser, table string) (*Mirror, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Mirror{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (m *Mirror) Close() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.Close()
}

// Upsert writes every record, replacing rows that share an id. Rows are
// written one by one; the first failure aborts and reports the offending id.
func (m *Mirror) Upsert(ctx context.Context, records []catalog.Record) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("record mirror is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	page,
	title,
	link,
	thumbnail,
	views,
	comments,
	likes,
	published_at,
	author,
	summary
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (id) DO UPDATE SET
	page = EXCLUDED.page,
	title = EXCLUDED.title,
	link = EXCLUDED.link,
	thumbnail = EXCLUDED.thumbnail,
	views = EXCLUDED.views,
	comments = EXCLUDED.comments,
	likes = EXCLUDED.likes,
	published_at = EXCLUDED.published_at,
	author = EXCLUDED.author,
	summary = EXCLUDED.summary`, m.table)

	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record id is required")
		}
		args := []any{
			rec.ID,
			rec.Page,
			rec.Title,
			rec.Link,
			rec.Thumbnail,
			rec.Views,
			rec.Comments,
			rec.Likes,
			rec.Date,
			rec.Author,
			rec.Summary,
		}
		if _, err := m.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}
	return nil
}
