/*
Package config loads tripsense configuration.

Settings are layered: built-in defaults, then an optional YAML file, then
TRIPSENSE_* environment variables, where a double underscore separates
nesting levels (TRIPSENSE_SEARCH__CACHE_SIZE sets search.cache_size).

Example file:

	logging:
	  level: debug
	search:
	  cache_size: 1000
	nlp:
	  embedding:
	    provider: http
	    endpoint: http://localhost:11434/api/embeddings
	    model: nomic-embed-text
	storage:
	  enabled: true
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Search    SearchConfig    `koanf:"search"`
	NLP       NLPConfig       `koanf:"nlp"`
	Recommend RecommendConfig `koanf:"recommend"`
	Storage   StorageConfig   `koanf:"storage"`
	Data      DataConfig      `koanf:"data"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled off"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// SearchConfig tunes the search engine.
type SearchConfig struct {
	// CacheSize is the number of (query, limit) result lists kept.
	CacheSize int `koanf:"cache_size" validate:"min=1"`

	// Workers is the scoring parallelism. 0 uses GOMAXPROCS.
	Workers int `koanf:"workers" validate:"min=0"`

	// PrefilterMin is the smallest keyword-filtered candidate set used as-is.
	PrefilterMin int `koanf:"prefilter_min" validate:"min=1"`

	// ShortQueryMinScore drops weak matches for one- and two-word queries.
	ShortQueryMinScore float64 `koanf:"short_query_min_score" validate:"gte=0,lte=1"`
}

// NLPConfig selects the optional NLP backends.
type NLPConfig struct {
	// StopwordsFile replaces the built-in English stop list, one word per line.
	StopwordsFile string `koanf:"stopwords_file" validate:"omitempty,file"`

	// Tokenizer is whitespace or unicode.
	Tokenizer string `koanf:"tokenizer" validate:"oneof=whitespace unicode"`

	Embedding EmbeddingConfig `koanf:"embedding"`
	Sentiment SentimentConfig `koanf:"sentiment"`
	Parser    ParserConfig    `koanf:"parser"`
	Breaker   BreakerConfig   `koanf:"breaker"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Provider is none (lexical similarity only), hash or http.
	Provider   string        `koanf:"provider" validate:"oneof=none hash http"`
	Endpoint   string        `koanf:"endpoint" validate:"omitempty,url"`
	Model      string        `koanf:"model"`
	Dimensions int           `koanf:"dimensions" validate:"min=8,max=8192"`
	CacheSize  int           `koanf:"cache_size" validate:"min=1"`
	Timeout    time.Duration `koanf:"timeout" validate:"min=0"`
}

// SentimentConfig selects the sentiment classifier.
type SentimentConfig struct {
	// Provider is lexicon or http.
	Provider  string        `koanf:"provider" validate:"oneof=lexicon http"`
	Endpoint  string        `koanf:"endpoint" validate:"omitempty,url"`
	Timeout   time.Duration `koanf:"timeout" validate:"min=0"`
	CacheSize int           `koanf:"cache_size" validate:"min=1"`
}

// ParserConfig points at an optional dependency parser. Empty disables
// meaning extraction.
type ParserConfig struct {
	Endpoint string        `koanf:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"min=0"`
}

// BreakerConfig guards every remote NLP backend.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"min=0"`
}

// RecommendConfig tunes recommendation shuffling.
type RecommendConfig struct {
	// Seed fixes the shuffle order. 0 seeds from the clock.
	Seed uint64 `koanf:"seed"`
}

// StorageConfig configures the SQLite history and embedding store.
type StorageConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention" validate:"min=0"`
}

// DataConfig points at the destination and activity snapshots.
type DataConfig struct {
	Destinations string `koanf:"destinations"`
	Activity     string `koanf:"activity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Search: SearchConfig{
			CacheSize:          500,
			Workers:            0,
			PrefilterMin:       50,
			ShortQueryMinScore: 0.03,
		},
		NLP: NLPConfig{
			Tokenizer: "whitespace",
			Embedding: EmbeddingConfig{
				Provider:   "none",
				Model:      "nomic-embed-text",
				Dimensions: 384,
				CacheSize:  10000,
				Timeout:    10 * time.Second,
			},
			Sentiment: SentimentConfig{
				Provider:  "lexicon",
				Timeout:   10 * time.Second,
				CacheSize: 10000,
			},
			Parser: ParserConfig{
				Timeout: 10 * time.Second,
			},
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
			},
		},
		Storage: StorageConfig{
			Enabled:   false,
			Path:      "~/.tripsense/history.db",
			Retention: 90 * 24 * time.Hour,
		},
	}
}

// DefaultPath returns ~/.tripsense/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tripsense", "config.yaml"), nil
}
