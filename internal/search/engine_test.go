package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/history"
	"github.com/khanglvm/tripsense/internal/similarity"
	"github.com/khanglvm/tripsense/internal/text"
)

type countingBackend struct {
	inner similarity.Backend
	calls atomic.Int64
}

func (c *countingBackend) Similarity(ctx context.Context, a, b string) float64 {
	c.calls.Add(1)
	return c.inner.Similarity(ctx, a, b)
}

func (c *countingBackend) Name() string { return "counting" }

type funcBackend func(a, b string) float64

func (f funcBackend) Similarity(_ context.Context, a, b string) float64 { return f(a, b) }
func (f funcBackend) Name() string                                      { return "func" }

type memRecorder struct {
	mu     sync.Mutex
	events []history.SearchEvent
}

func (m *memRecorder) Track(e history.SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memRecorder) strategies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Strategy
	}
	return out
}

func sampleDestinations() []catalog.Destination {
	return []catalog.Destination{
		{
			ID:          1,
			Name:        "Grand Gallery",
			Description: "A long walk through galleries that once hosted exhibitions from paris and many other capitals of art and culture",
			City:        "Lyon",
			Country:     "France",
		},
		{ID: 2, Name: "Paris Tower", Description: "Iron lattice tower", City: "Paris", Country: "France"},
		{ID: 3, Name: "Quiet Cove", Description: "sandy beach", City: "Nha Trang", Country: "Vietnam"},
	}
}

func newTestEngine(backend similarity.Backend, rec Recorder) *Engine {
	return NewEngine(backend, text.MustNew(), Config{Workers: 2, Seed: 7}, rec, zerolog.Nop())
}

func TestSearch_InvalidLimit(t *testing.T) {
	e := newTestEngine(similarity.NewLexical(text.MustNew()), nil)
	_, err := e.Search(context.Background(), "paris", sampleDestinations(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSearch_SecondCallIsCacheHit(t *testing.T) {
	backend := &countingBackend{inner: similarity.NewLexical(text.MustNew())}
	rec := &memRecorder{}
	e := newTestEngine(backend, rec)
	dests := sampleDestinations()
	ctx := context.Background()

	first, err := e.Search(ctx, "iron tower in paris", dests, 5)
	require.NoError(t, err)
	calls := backend.calls.Load()
	require.Positive(t, calls)

	second, err := e.Search(ctx, "iron tower in paris", dests, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, backend.calls.Load())
	assert.Equal(t, []string{"semantic", "cache"}, rec.strategies())
	assert.Equal(t, int64(1), e.CacheStats().Hits)
}

func TestSearch_LimitIsPartOfCacheKey(t *testing.T) {
	backend := &countingBackend{inner: similarity.NewLexical(text.MustNew())}
	e := newTestEngine(backend, nil)
	dests := sampleDestinations()

	_, err := e.Search(context.Background(), "paris", dests, 5)
	require.NoError(t, err)
	calls := backend.calls.Load()

	_, err = e.Search(context.Background(), "paris", dests, 6)
	require.NoError(t, err)
	assert.Greater(t, backend.calls.Load(), calls)
}

func TestSearch_NameAndCityBoostsRankFirst(t *testing.T) {
	e := newTestEngine(similarity.NewLexical(text.MustNew()), nil)

	results, err := e.Search(context.Background(), "paris", sampleDestinations(), 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(2), results[0].Destination.ID)

	pos := map[int64]int{}
	for i, r := range results {
		pos[r.Destination.ID] = i
	}
	assert.Less(t, pos[2], pos[1])
	assert.Greater(t, results[0].Score, 1.0, "boosted scores are not clamped")
}

func TestSearch_InvalidateForcesRecompute(t *testing.T) {
	backend := &countingBackend{inner: similarity.NewLexical(text.MustNew())}
	e := newTestEngine(backend, nil)
	dests := sampleDestinations()

	_, err := e.Search(context.Background(), "beach", dests, 5)
	require.NoError(t, err)
	calls := backend.calls.Load()

	assert.True(t, e.Invalidate("beach", 5))
	assert.False(t, e.Invalidate("beach", 5))

	_, err = e.Search(context.Background(), "beach", dests, 5)
	require.NoError(t, err)
	assert.Greater(t, backend.calls.Load(), calls)
}

func TestSearch_ShortQueryKeepsLowScoresWhenTooFewPass(t *testing.T) {
	zero := funcBackend(func(string, string) float64 { return 0 })
	e := newTestEngine(zero, nil)

	results, err := e.Search(context.Background(), "volcano", sampleDestinations(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, IDs(results), "ties keep collection order")
}

func TestSearch_PanickingBackendFallsBackToKeyword(t *testing.T) {
	panicky := funcBackend(func(string, string) float64 { panic("model exploded") })
	rec := &memRecorder{}
	e := newTestEngine(panicky, rec)
	dests := sampleDestinations()

	results, err := e.Search(context.Background(), "quiet", dests, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].Destination.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	// Fallback results are not memoized.
	_, err = e.Search(context.Background(), "quiet", dests, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"keyword", "keyword"}, rec.strategies())
	assert.Equal(t, 0, e.CacheStats().Size)
}

func TestSearch_CancelledContext(t *testing.T) {
	e := newTestEngine(similarity.NewLexical(text.MustNew()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, "paris", sampleDestinations(), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_EmptyCollection(t *testing.T) {
	e := newTestEngine(similarity.NewLexical(text.MustNew()), nil)
	results, err := e.Search(context.Background(), "paris", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPrefilter(t *testing.T) {
	e := NewEngine(similarity.NewLexical(text.MustNew()), text.MustNew(), Config{PrefilterMin: 1}, nil, zerolog.Nop())
	dests := []catalog.Destination{
		{ID: 1, Name: "Beach Bar"},
		{ID: 2, Name: "Museum"},
		{ID: 3, Name: "Hotel", Description: "by the beach"},
	}

	assert.Equal(t, []int{0, 2}, e.prefilter([]string{"beach"}, dests, 1))
	// Too few matches for limit 2 (needs 4): use everything.
	assert.Equal(t, []int{0, 1, 2}, e.prefilter([]string{"beach"}, dests, 2))
	assert.Equal(t, []int{0, 1, 2}, e.prefilter(nil, dests, 1))
}

func TestRandomSample(t *testing.T) {
	e := newTestEngine(similarity.NewLexical(text.MustNew()), nil)
	dests := sampleDestinations()

	results := e.randomSample(dests, 2)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Destination.ID, results[1].Destination.ID)
	for _, r := range results {
		assert.Equal(t, 0.1, r.Score)
	}

	assert.Len(t, e.randomSample(dests, 10), 3)
}

func TestWeightedText(t *testing.T) {
	d := &catalog.Destination{
		Name:          "Fort",
		Description:   "old walls",
		City:          "Hue",
		Country:       "Vietnam",
		Subcategories: []string{"a", "b", "c", "d", "e", "f"},
		Subtypes:      []string{"x"},
	}
	got := weightedText(d)
	assert.Equal(t, "Fort old walls Hue Hue Hue Vietnam Vietnam Vietnam a b c d e x", got)
	assert.False(t, strings.Contains(got, " f "))
}
