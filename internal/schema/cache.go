package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Cache persists the last-parsed Generation to a SQLite table, replacing
// the original daemon's flat cache file (§6 "Persisted state"). On
// restart, the controller's LoadSchema calls Load before the network fetch
// races to confirm it (§4.3 Cache behavior).
type Cache struct {
	db *sql.DB
}

// NewCache wraps an already-open database connection. The caller owns the
// connection's lifecycle.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

type cachedGeneration struct {
	Devices map[int]Device `json:"devices"`
	Outputs map[int]Output `json:"outputs"`
}

// Load returns the most recently saved Generation, or ok=false if none has
// been saved yet.
func (c *Cache) Load(ctx context.Context) (Generation, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM schema_cache WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return Generation{}, false, nil
	}
	if err != nil {
		return Generation{}, false, fmt.Errorf("schema cache: load: %w", err)
	}
	var cg cachedGeneration
	if err := json.Unmarshal(blob, &cg); err != nil {
		return Generation{}, false, fmt.Errorf("schema cache: decode: %w", err)
	}
	return Generation{Devices: cg.Devices, Outputs: cg.Outputs}, true, nil
}

// Save overwrites the cached Generation. Called after a successful parse.
func (c *Cache) Save(ctx context.Context, g Generation) error {
	blob, err := json.Marshal(cachedGeneration{Devices: g.Devices, Outputs: g.Outputs})
	if err != nil {
		return fmt.Errorf("schema cache: encode: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO schema_cache (id, payload) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload`,
		blob)
	if err != nil {
		return fmt.Errorf("schema cache: save: %w", err)
	}
	return nil
}
