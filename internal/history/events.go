/*
Package history records destination searches in the background.

Search handlers call Tracker.Track, which never blocks: events are queued
and flushed to storage in small batches by a single goroutine. A full queue
drops the event rather than slowing the search path.
*/
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/tripsense/internal/storage"
)

// SearchEvent describes one completed search.
type SearchEvent struct {
	// SearchID uniquely identifies the search.
	SearchID string

	// QueryHash is the SHA256 hash of the raw query.
	QueryHash string

	// Timestamp is when the search finished.
	Timestamp time.Time

	// Limit is the requested result count.
	Limit int

	// ResultsCount is the number of results returned.
	ResultsCount int

	// Strategy names the path that produced the results.
	Strategy string

	// Duration is the wall time of the search.
	Duration time.Duration
}

// NewSearchEvent builds an event with a fresh ID and a hashed query.
func NewSearchEvent(query string, limit, results int, strategy string, duration time.Duration) SearchEvent {
	return SearchEvent{
		SearchID:     uuid.NewString(),
		QueryHash:    storage.HashQuery(query),
		Timestamp:    time.Now(),
		Limit:        limit,
		ResultsCount: results,
		Strategy:     strategy,
		Duration:     duration,
	}
}

// ToStorage converts the event to its persisted form.
func (e SearchEvent) ToStorage() storage.SearchRecord {
	return storage.SearchRecord{
		SearchID:     e.SearchID,
		QueryHash:    e.QueryHash,
		Timestamp:    e.Timestamp,
		Limit:        e.Limit,
		ResultsCount: e.ResultsCount,
		Strategy:     e.Strategy,
		DurationMs:   e.Duration.Milliseconds(),
	}
}
