package schema

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE schema_cache (id INTEGER PRIMARY KEY, payload BLOB NOT NULL)`); err != nil {
		t.Fatalf("create schema_cache: %v", err)
	}
	return db
}

func TestCacheLoadEmpty(t *testing.T) {
	c := NewCache(openTestDB(t))
	_, ok, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("Load on an empty cache should report ok=false")
	}
}

func TestCacheSaveAndLoadRoundTrip(t *testing.T) {
	c := NewCache(openTestDB(t))
	ctx := context.Background()

	want := Generation{
		Devices: map[int]Device{1: {ID: 1, Name: "Foyer", Kind: DevicePicoKeypad, Components: map[int]Component{}}},
		Outputs: map[int]Output{2: {ID: 2, Name: "Lamp", Dim: true}},
	}
	if err := c.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load should report ok=true after a Save")
	}
	if !want.Equal(got) {
		t.Errorf("round-tripped generation differs: got %+v, want %+v", got, want)
	}
}

func TestCacheSaveOverwrites(t *testing.T) {
	c := NewCache(openTestDB(t))
	ctx := context.Background()

	first := Generation{Devices: map[int]Device{}, Outputs: map[int]Output{1: {ID: 1, Name: "A"}}}
	second := Generation{Devices: map[int]Device{}, Outputs: map[int]Output{1: {ID: 1, Name: "B"}}}

	if err := c.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := c.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, ok, err := c.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Outputs[1].Name != "B" {
		t.Errorf("second Save should overwrite the first, got name %q", got.Outputs[1].Name)
	}
}
