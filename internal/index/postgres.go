package index

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used by the index.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Postgres implements the search index on Postgres full-text search.
// Expected schema:
//
//	CREATE TABLE pages (
//		url     TEXT PRIMARY KEY,
//		title   TEXT NOT NULL,
//		content TEXT NOT NULL,
//		tsv     TSVECTOR GENERATED ALWAYS AS (
//			to_tsvector('english', title || ' ' || content)
//		) STORED
//	);
//	CREATE INDEX pages_tsv_idx ON pages USING GIN (tsv);
type Postgres struct {
	pool  pgxPool
	table string
}

// NewPostgres connects a Postgres-backed index using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "pages"
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
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs an index from an existing pool (primarily for testing).
func NewPostgresWithPool(pool pgxPool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "pages"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// Upsert inserts or replaces the document keyed by URL.
func (p *Postgres) Upsert(ctx context.Context, doc crawl.Document) error {
	if doc.URL == "" {
		return fmt.Errorf("document url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, title, content)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content`, p.table)

	if _, err := p.pool.Exec(ctx, query, doc.URL, doc.Title, doc.Content); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Query runs a ranked full-text search over title and content.
func (p *Postgres) Query(ctx context.Context, text string, limit int) ([]crawl.Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`
SELECT url, title, ts_rank(tsv, plainto_tsquery('english', $1)) AS rank
FROM %s
WHERE tsv @@ plainto_tsquery('english', $1)
ORDER BY rank DESC
LIMIT $2`, p.table)

	rows, err := p.pool.Query(ctx, query, text, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var hits []crawl.Hit
	for rows.Next() {
		var h crawl.Hit
		if err := rows.Scan(&h.URL, &h.Title, &h.Score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}
