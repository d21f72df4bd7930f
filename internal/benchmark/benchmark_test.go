package benchmark

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/cache"
	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/search"
	"github.com/khanglvm/tripsense/internal/similarity"
	"github.com/khanglvm/tripsense/internal/text"
)

func testDestinations() []catalog.Destination {
	return []catalog.Destination{
		{ID: 1, Name: "Louvre Museum", Description: "Art museum with paintings", City: "Paris", Country: "France"},
		{ID: 2, Name: "Playa de la Concha", Description: "City beach", City: "San Sebastian", Country: "Spain"},
		{ID: 3, Name: "Edinburgh Castle", Description: "Historic castle on a rock", City: "Edinburgh", Country: "Scotland"},
	}
}

func TestRunUsesCacheOnWarmPass(t *testing.T) {
	normalizer := text.MustNew()
	engine := search.NewEngine(similarity.NewLexical(normalizer), normalizer, search.Config{}, nil, zerolog.Nop())

	queries := []string{"paris", "historic castle tour"}
	result, err := Run(context.Background(), engine, testDestinations(), queries, 5, 3)
	require.NoError(t, err)

	require.Len(t, result.Queries, 2)
	assert.Equal(t, 3, result.Destinations)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, "paris", result.Queries[0].Query)
	assert.Positive(t, result.Queries[0].Results)

	// 2 cold misses, 6 warm hits.
	assert.InDelta(t, 0.75, result.CacheHitRate, 1e-9)
	assert.Equal(t, 2, engine.CacheStats().Size)
}

func TestRunPurgesBeforeStarting(t *testing.T) {
	normalizer := text.MustNew()
	engine := search.NewEngine(similarity.NewLexical(normalizer), normalizer, search.Config{}, nil, zerolog.Nop())
	dests := testDestinations()

	_, err := engine.Search(context.Background(), "paris", dests, 5)
	require.NoError(t, err)

	result, err := Run(context.Background(), engine, dests, []string{"paris"}, 5, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.CacheHitRate, 1e-9)
}

func TestRunDefaults(t *testing.T) {
	normalizer := text.MustNew()
	engine := search.NewEngine(similarity.NewLexical(normalizer), normalizer, search.Config{}, nil, zerolog.Nop())

	result, err := Run(context.Background(), engine, testDestinations(), nil, 5, 0)
	require.NoError(t, err)
	assert.Len(t, result.Queries, len(DefaultQueries))
	assert.Equal(t, DefaultIterations, result.Iterations)
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, []catalog.Destination, int) ([]search.Result, error) {
	return nil, errors.New("boom")
}
func (failingSearcher) Purge()                  {}
func (failingSearcher) CacheStats() cache.Stats { return cache.Stats{} }

func TestRunPropagatesErrors(t *testing.T) {
	_, err := Run(context.Background(), failingSearcher{}, nil, []string{"x"}, 5, 1)
	assert.ErrorContains(t, err, "boom")
}

func TestFormatResult(t *testing.T) {
	result := &Result{
		Destinations: 3,
		Iterations:   2,
		Queries: []QueryResult{
			{Query: "paris", Results: 2, Cold: 1500000, Warm: 2000},
		},
		ColdAverage:  1500000,
		WarmAverage:  2000,
		Speedup:      750,
		CacheHitRate: 0.5,
	}

	out := FormatResult(result)
	assert.Contains(t, out, "SEARCH LATENCY BENCHMARK RESULTS")
	assert.Contains(t, out, "paris")
	assert.Contains(t, out, "Speedup:      750.0x")
	assert.Contains(t, out, "Cache hits:   50.0%")
}
