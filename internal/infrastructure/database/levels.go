package database

import (
	"context"
	"fmt"
	"time"
)

// RecordLevel appends a row to the rolling dimmer-level history table. The
// controller calls this on every settled level delta so the UI and any
// external reporting can replay an output's level over time; it is not
// used for schema caching, which lives in the schema package's own Cache.
func (db *DB) RecordLevel(ctx context.Context, outputID, level int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO level_history (output_id, level, recorded_at) VALUES (?, ?, ?)`,
		outputID, level, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording level history: %w", err)
	}
	return nil
}

// PruneLevelHistory deletes history rows older than olderThan. Nothing in
// the daemon calls it on a schedule; the table keeps every row until a
// caller prunes it.
func (db *DB) PruneLevelHistory(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	_, err := db.ExecContext(ctx,
		`DELETE FROM level_history WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("pruning level history: %w", err)
	}
	return nil
}
