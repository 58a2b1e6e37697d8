package detect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// emaAlpha weights the newest outcome in the accuracy moving average.
const emaAlpha = 0.3

// History persists per-pattern detection accuracy and last-run
// timestamps in a local sqlite database.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	h := &History{db: db}
	if err := h.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS pattern_history (
			signature TEXT PRIMARY KEY,
			accuracy REAL NOT NULL,
			samples INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS last_run (
			root TEXT PRIMARY KEY,
			ran_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range ddl {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init history schema: %w", err)
		}
	}
	return nil
}

// Accuracy returns the recorded accuracy for a pattern signature and
// whether any record exists.
func (h *History) Accuracy(ctx context.Context, signature string) (float64, bool, error) {
	var acc float64
	err := h.db.QueryRowContext(ctx,
		`SELECT accuracy FROM pattern_history WHERE signature = ?`, signature).Scan(&acc)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query pattern history: %w", err)
	}
	return acc, true, nil
}

// RecordOutcome folds a run outcome into the pattern's accuracy using
// an exponential moving average.
func (h *History) RecordOutcome(ctx context.Context, signature string, ok bool) error {
	outcome := 0.0
	if ok {
		outcome = 1.0
	}

	prev, found, err := h.Accuracy(ctx, signature)
	if err != nil {
		return err
	}

	next := outcome
	if found {
		next = emaAlpha*outcome + (1-emaAlpha)*prev
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO pattern_history (signature, accuracy, samples, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(signature) DO UPDATE SET
			accuracy = excluded.accuracy,
			samples = samples + 1,
			updated_at = excluded.updated_at`,
		signature, next, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record pattern outcome: %w", err)
	}
	return nil
}

// LastRun returns the previous run time for a root, if recorded.
func (h *History) LastRun(ctx context.Context, root string) (time.Time, bool, error) {
	var raw string
	err := h.db.QueryRowContext(ctx,
		`SELECT ran_at FROM last_run WHERE root = ?`, root).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last run: %w", err)
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt last_run timestamp %q: %w", raw, err)
	}
	return t, true, nil
}

// SetLastRun records the run time for a root.
func (h *History) SetLastRun(ctx context.Context, root string, t time.Time) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO last_run (root, ran_at) VALUES (?, ?)
		ON CONFLICT(root) DO UPDATE SET ran_at = excluded.ran_at`,
		root, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record last run: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
