package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

// Tracker keeps the last observed stage per item in a sqlite DB. It is
// observational only: the CSV store stays the single dedup authority, the
// tracker just makes Failed@<stage> outcomes inspectable across runs.
type Tracker struct {
	db *sql.DB
}

// OpenTracker opens (or creates) the sqlite run-state database.
func OpenTracker(path string) (*Tracker, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("tracker: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracker: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initTrackerSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracker: init schema: %w", err)
	}
	return &Tracker{db: db}, nil
}

// initTrackerSchema creates the items table if it doesn't exist.
func initTrackerSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS items (
		item_id    TEXT PRIMARY KEY,
		stage      TEXT NOT NULL,
		status     TEXT NOT NULL,
		error      TEXT,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Mark upserts the item's last stage. Failures to record are logged and
// swallowed — tracking must never fail the pipeline.
func (t *Tracker) Mark(ctx context.Context, itemID string, stage engine.Stage, failure error) {
	status := "ok"
	errText := ""
	if failure != nil {
		status = "failed"
		errText = failure.Error()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO items (item_id, stage, status, error, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
		   stage = excluded.stage,
		   status = excluded.status,
		   error = excluded.error,
		   updated_at = excluded.updated_at`,
		itemID, string(stage), status, errText, now,
	)
	if err != nil {
		slog.Warn("tracker: mark failed", slog.String("item", itemID), slog.Any("error", err))
	}
}

// TrackedItem is one row of the run-state table.
type TrackedItem struct {
	ItemID    string
	Stage     engine.Stage
	Status    string
	Error     string
	UpdatedAt string
}

// Failed lists items whose last recorded state is a failure, oldest first.
func (t *Tracker) Failed(ctx context.Context) ([]TrackedItem, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT item_id, stage, status, error, updated_at
		 FROM items WHERE status = 'failed' ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("tracker: query failed items: %w", err)
	}
	defer rows.Close()

	var items []TrackedItem
	for rows.Next() {
		var it TrackedItem
		var errText sql.NullString
		if err := rows.Scan(&it.ItemID, (*string)(&it.Stage), &it.Status, &errText, &it.UpdatedAt); err != nil {
			continue
		}
		it.Error = errText.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// Close closes the underlying database.
func (t *Tracker) Close() error { return t.db.Close() }
