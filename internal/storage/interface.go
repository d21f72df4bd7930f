/*
Package storage persists search history and embedding vectors in SQLite.

The database defaults to ~/.tripsense/history.db and uses modernc.org/sqlite
(pure Go, no CGo). Storage degrades gracefully: if the database cannot be
opened every operation becomes a no-op, so search and recommendation keep
working without history or persisted vectors.
*/
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Storage defines the persistent storage operations.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// RecordSearch stores one search event.
	RecordSearch(search SearchRecord) error

	// SearchHistory returns search events newer than since, most recent first.
	SearchHistory(since time.Time, limit int) ([]SearchRecord, error)

	// SaveEmbedding persists a vector under key for a model version.
	SaveEmbedding(key string, vector []float32, version string) error

	// GetEmbedding loads a persisted vector and the model version that produced it.
	GetEmbedding(key string) ([]float32, string, error)

	// Cleanup removes search history older than retention.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
	logger   zerolog.Logger
}

// DefaultPath returns ~/.tripsense/history.db, or "" if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tripsense", "history.db")
}

// NewStorage creates a storage instance for dbPath.
//
// An empty path selects DefaultPath. A leading "~/" is expanded. If no
// usable path can be determined the storage is disabled but operations
// do not fail.
func NewStorage(dbPath string, logger zerolog.Logger) *SQLiteStorage {
	logger = logger.With().Str("component", "storage").Logger()

	if dbPath == "" {
		dbPath = DefaultPath()
	} else if strings.HasPrefix(dbPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to get home directory, storage disabled")
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		dbPath = filepath.Join(home, dbPath[2:])
	}

	if dbPath == "" {
		logger.Warn().Msg("no database path available, storage disabled")
		return &SQLiteStorage{enabled: false, logger: logger}
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Disabled returns a storage whose operations are all no-ops.
func Disabled() *SQLiteStorage {
	return &SQLiteStorage{enabled: false, logger: zerolog.Nop()}
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Msg("storage disabled")
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Msg("storage disabled")
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Msg("storage disabled")
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashQuery creates a SHA256 hash of a string so raw queries and review text are never stored.
func HashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}
