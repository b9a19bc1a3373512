package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

const recordsSchema = `CREATE TABLE IF NOT EXISTS award_records (
	item_id      TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	technologies TEXT[] NOT NULL DEFAULT '{}',
	source_url   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres mirrors enriched records into a Postgres table for downstream
// querying. Optional: the CSV store remains the source of truth, this is
// write-behind only.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and ensures the records table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, recordsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create award_records: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Insert mirrors one record. Re-inserting an existing item_id is a no-op,
// matching the CSV store's uniqueness invariant.
func (p *Postgres) Insert(ctx context.Context, rec engine.EnrichedRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO award_records (item_id, title, description, summary, technologies, source_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (item_id) DO NOTHING`,
		rec.ItemID, rec.Title, rec.Description, rec.Summary, rec.Technologies, rec.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ItemID, err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }
