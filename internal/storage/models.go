package storage

import "time"

// SearchRecord is one executed destination search.
type SearchRecord struct {
	// SearchID is a unique identifier for this search (UUID).
	SearchID string `json:"search_id"`

	// QueryHash is the SHA256 hash of the search query.
	QueryHash string `json:"query_hash"`

	// Timestamp is when the search was performed.
	Timestamp time.Time `json:"timestamp"`

	// Limit is the requested number of results.
	Limit int `json:"limit"`

	// ResultsCount is the number of results returned.
	ResultsCount int `json:"results_count"`

	// Strategy names the path that produced the results: cache, semantic, keyword or random.
	Strategy string `json:"strategy"`

	// DurationMs is the wall time of the search in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// Embedding is a persisted embedding vector.
type Embedding struct {
	// Key is the SHA256 hash of the embedded text.
	Key string `json:"key"`

	// Vector is the embedding vector (serialized as JSON).
	Vector []float32 `json:"vector"`

	// Version is the model that produced the vector.
	Version string `json:"version"`

	// CreatedAt is when the embedding was generated.
	CreatedAt time.Time `json:"created_at"`
}
