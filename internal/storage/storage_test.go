package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage := NewStorage(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	storage := NewStorage(dbPath, zerolog.Nop())

	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}
	if !storage.Enabled() {
		t.Error("Expected storage to be enabled after Init")
	}

	var version int
	if err := storage.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("Failed to read migration version: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected migration version 2, got %d", version)
	}
}

// TestInitIdempotent verifies reopening an existing database skips applied migrations.
func TestInitIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first := NewStorage(dbPath, zerolog.Nop())
	if err := first.Init(); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	first.Close()

	second := NewStorage(dbPath, zerolog.Nop())
	if err := second.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer second.Close()
}

// TestNewStorageExpandsHome verifies "~/" paths resolve under the home directory.
func TestNewStorageExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Cannot get home directory: %v", err)
	}

	storage := NewStorage("~/.tripsense-test/history.db", zerolog.Nop())
	want := filepath.Join(home, ".tripsense-test", "history.db")
	if storage.Path() != want {
		t.Errorf("Expected path %s, got %s", want, storage.Path())
	}
}

// TestRecordSearch verifies search events round-trip through history.
func TestRecordSearch(t *testing.T) {
	storage := newTestStorage(t)

	rec := SearchRecord{
		SearchID:     "search-1",
		QueryHash:    HashQuery("quiet beach"),
		Timestamp:    time.Now(),
		Limit:        10,
		ResultsCount: 7,
		Strategy:     "semantic",
		DurationMs:   12,
	}
	if err := storage.RecordSearch(rec); err != nil {
		t.Fatalf("RecordSearch failed: %v", err)
	}

	history, err := storage.SearchHistory(time.Now().Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("SearchHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 search record, got %d", len(history))
	}
	got := history[0]
	if got.SearchID != "search-1" || got.Strategy != "semantic" || got.ResultsCount != 7 || got.Limit != 10 {
		t.Errorf("Unexpected record: %+v", got)
	}
}

// TestCleanup verifies old search rows are removed.
func TestCleanup(t *testing.T) {
	storage := newTestStorage(t)

	old := SearchRecord{SearchID: "old", QueryHash: "h", Timestamp: time.Now().Add(-48 * time.Hour), Limit: 5, Strategy: "keyword"}
	recent := SearchRecord{SearchID: "new", QueryHash: "h", Timestamp: time.Now(), Limit: 5, Strategy: "keyword"}
	storage.RecordSearch(old)
	storage.RecordSearch(recent)

	if err := storage.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	history, err := storage.SearchHistory(time.Now().Add(-72*time.Hour), 0)
	if err != nil {
		t.Fatalf("SearchHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].SearchID != "new" {
		t.Errorf("Expected only the recent record to survive, got %+v", history)
	}
}

// TestEmbeddingPersistence verifies vectors round-trip.
func TestEmbeddingPersistence(t *testing.T) {
	storage := newTestStorage(t)

	key := HashQuery("eiffel tower")
	vec := []float32{0.1, 0.2, 0.3}
	if err := storage.SaveEmbedding(key, vec, "hash-384"); err != nil {
		t.Fatalf("SaveEmbedding failed: %v", err)
	}

	got, version, err := storage.GetEmbedding(key)
	if err != nil {
		t.Fatalf("GetEmbedding failed: %v", err)
	}
	if version != "hash-384" {
		t.Errorf("Expected version hash-384, got %s", version)
	}
	if len(got) != 3 || got[1] != 0.2 {
		t.Errorf("Unexpected vector: %v", got)
	}

	missing, _, err := storage.GetEmbedding(HashQuery("unknown"))
	if err != nil || missing != nil {
		t.Errorf("Expected nil vector for missing key, got %v (err %v)", missing, err)
	}
}

// TestHashQuery verifies query hashing consistency.
func TestHashQuery(t *testing.T) {
	hash1 := HashQuery("test query for hashing")
	hash2 := HashQuery("test query for hashing")

	if hash1 != hash2 {
		t.Error("HashQuery produced inconsistent results")
	}
	if len(hash1) != 64 {
		t.Errorf("Expected hash length 64, got %d", len(hash1))
	}
}

// TestGracefulDegradation verifies behavior when the DB is unavailable.
func TestGracefulDegradation(t *testing.T) {
	// A regular file in the parent chain makes MkdirAll fail even for root.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}
	storage := NewStorage(filepath.Join(blocker, "sub", "test.db"), zerolog.Nop())

	// Init is expected to fail; the storage must still be usable.
	_ = storage.Init()

	if err := storage.RecordSearch(SearchRecord{SearchID: "x", Timestamp: time.Now()}); err != nil {
		t.Errorf("RecordSearch should return nil on disabled storage, got: %v", err)
	}

	history, err := storage.SearchHistory(time.Now(), 10)
	if err != nil {
		t.Errorf("SearchHistory should not error on disabled storage, got: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history on disabled storage, got %d records", len(history))
	}

	vec, _, err := storage.GetEmbedding("k")
	if err != nil || vec != nil {
		t.Errorf("Expected no vector on disabled storage, got %v (err %v)", vec, err)
	}

	disabled := Disabled()
	if disabled.Enabled() {
		t.Error("Disabled storage reports enabled")
	}
	if err := disabled.Close(); err != nil {
		t.Errorf("Close on disabled storage failed: %v", err)
	}
}
