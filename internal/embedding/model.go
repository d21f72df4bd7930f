package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/cache"
	"github.com/khanglvm/tripsense/internal/storage"
)

// VectorStore persists vectors across runs.
type VectorStore interface {
	SaveEmbedding(key string, vector []float32, version string) error
	GetEmbedding(key string) ([]float32, string, error)
}

// Model memoizes provider output in a bounded LRU and, optionally, a VectorStore.
type Model struct {
	provider Provider
	cache    *cache.LRU[string, []float32]
	store    VectorStore
	logger   zerolog.Logger
}

// NewModel wraps provider. store may be nil.
func NewModel(provider Provider, cacheSize int, store VectorStore, logger zerolog.Logger) *Model {
	return &Model{
		provider: provider,
		cache:    cache.New[string, []float32]("embedding", cacheSize),
		store:    store,
		logger:   logger.With().Str("component", "embedding").Logger(),
	}
}

// Version returns the provider's model version.
func (m *Model) Version() string {
	return m.provider.Version()
}

// Embed returns the vector for text, consulting the memory cache, then the
// store, then the provider. Provider failures are returned and never cached.
func (m *Model) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := m.cache.Get(text); ok {
		return vec, nil
	}

	key := storage.HashQuery(text)
	if m.store != nil {
		vec, version, err := m.store.GetEmbedding(key)
		if err == nil && vec != nil && version == m.provider.Version() {
			m.cache.Put(text, vec)
			return vec, nil
		}
	}

	vec, err := m.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	m.cache.Put(text, vec)
	if m.store != nil {
		if err := m.store.SaveEmbedding(key, vec, m.provider.Version()); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist embedding")
		}
	}
	return vec, nil
}

// Probe checks that the provider can produce a vector.
func (m *Model) Probe(ctx context.Context) error {
	vec, err := m.provider.Embed(ctx, "destination search probe")
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	return nil
}

// CacheStats returns the in-memory cache counters.
func (m *Model) CacheStats() cache.Stats {
	return m.cache.Stats()
}

// ClearCache drops the in-memory cache. Persisted vectors are kept.
func (m *Model) ClearCache() {
	m.cache.Purge()
}
