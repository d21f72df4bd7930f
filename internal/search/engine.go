package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/tripsense/internal/cache"
	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/history"
	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/similarity"
	"github.com/khanglvm/tripsense/internal/text"
)

// ErrInvalidLimit is returned when a search asks for zero or fewer results.
var ErrInvalidLimit = errors.New("search limit must be positive")

const (
	// DefaultCacheSize is the number of (query, limit) result lists kept.
	DefaultCacheSize = 500

	// DefaultPrefilterMin is the smallest pre-filtered candidate set used as-is.
	DefaultPrefilterMin = 50

	// DefaultShortQueryMinScore is the score floor applied to short queries.
	DefaultShortQueryMinScore = 0.03

	// randomScore is assigned to every result of the last-resort sample.
	randomScore = 0.1

	// blobListLimit caps how many subcategories and subtypes enter the scoring text.
	blobListLimit = 5
)

// Config tunes an Engine. Zero values select the defaults.
type Config struct {
	CacheSize          int
	Workers            int
	PrefilterMin       int
	ShortQueryMinScore float64
	Seed               uint64
}

// Recorder receives one event per completed search.
type Recorder interface {
	Track(event history.SearchEvent)
}

// Engine ranks destinations against queries. It is safe for concurrent use.
type Engine struct {
	backend    similarity.Backend
	normalizer *text.Normalizer
	cache      *cache.LRU[cacheKey, []Result]
	recorder   Recorder
	logger     zerolog.Logger

	workers            int
	prefilterMin       int
	shortQueryMinScore float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a search engine. recorder may be nil.
func NewEngine(backend similarity.Backend, normalizer *text.Normalizer, cfg Config, recorder Recorder, logger zerolog.Logger) *Engine {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.PrefilterMin <= 0 {
		cfg.PrefilterMin = DefaultPrefilterMin
	}
	if cfg.ShortQueryMinScore <= 0 {
		cfg.ShortQueryMinScore = DefaultShortQueryMinScore
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Engine{
		backend:            backend,
		normalizer:         normalizer,
		cache:              cache.New[cacheKey, []Result]("search", cfg.CacheSize),
		recorder:           recorder,
		logger:             logger.With().Str("component", "search").Logger(),
		workers:            cfg.Workers,
		prefilterMin:       cfg.PrefilterMin,
		shortQueryMinScore: cfg.ShortQueryMinScore,
		rng:                rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Backend returns the similarity backend used for scoring.
func (e *Engine) Backend() similarity.Backend {
	return e.backend
}

// Search returns at most limit destinations ranked by relevance to query.
// Results are memoized per (query, limit); an empty cached list is still a hit.
// Scoring failures degrade to KeywordSearch and then to a random sample, so
// the only errors are an invalid limit or a cancelled context.
func (e *Engine) Search(ctx context.Context, query string, dests []catalog.Destination, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	key := cacheKey{query: query, limit: limit}

	if cached, ok := e.cache.Get(key); ok {
		e.observe(query, limit, len(cached), StrategyCache, start)
		return cached, nil
	}

	results, err := e.rank(ctx, query, dests, limit)
	if err == nil {
		e.cache.Put(key, results)
		e.observe(query, limit, len(results), StrategySemantic, start)
		return results, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	metrics.RecordDegradation("search", "backend_error")
	e.logger.Warn().Err(err).Str("query", query).Msg("semantic search failed, falling back to keyword search")

	results, err = e.safeKeywordSearch(query, dests, limit)
	if err == nil {
		e.observe(query, limit, len(results), StrategyKeyword, start)
		return results, nil
	}

	metrics.RecordDegradation("search", "panic")
	e.logger.Error().Err(err).Str("query", query).Msg("keyword search failed, returning random destinations")

	results = e.randomSample(dests, limit)
	e.observe(query, limit, len(results), StrategyRandom, start)
	return results, nil
}

// Invalidate drops the memoized result for (query, limit) and reports whether one existed.
func (e *Engine) Invalidate(query string, limit int) bool {
	return e.cache.Remove(cacheKey{query: query, limit: limit})
}

// Purge drops every memoized result.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// CacheStats reports result cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// rank is the primary scoring path. Panics anywhere in it become errors.
func (e *Engine) rank(ctx context.Context, query string, dests []catalog.Destination, limit int) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("semantic search panicked: %v", r)
		}
	}()

	tokens := uniqueTokens(e.normalizer.Normalize(query, false))
	short := similarity.IsShortQuery(query)

	candidates := e.prefilter(tokens, dests, limit)
	scores, err := e.scoreAll(ctx, query, tokens, short, dests, candidates)
	if err != nil {
		return nil, err
	}

	ranked := make([]Result, len(candidates))
	for i, idx := range candidates {
		ranked[i] = Result{Destination: &dests[idx], Score: scores[i]}
	}
	slices.SortStableFunc(ranked, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if short {
		kept := make([]Result, 0, len(ranked))
		for _, r := range ranked {
			if r.Score >= e.shortQueryMinScore {
				kept = append(kept, r)
			}
		}
		if len(kept) >= limit {
			ranked = kept
		}
	}

	return truncate(ranked, limit), nil
}

// prefilter returns the indices of destinations whose text mentions a query
// token, or every index when that subset is too small to rank reliably.
func (e *Engine) prefilter(tokens []string, dests []catalog.Destination, limit int) []int {
	all := make([]int, len(dests))
	for i := range dests {
		all[i] = i
	}
	if len(tokens) == 0 {
		return all
	}

	filtered := make([]int, 0, len(dests))
	for i := range dests {
		if containsAny(haystack(&dests[i]), tokens) {
			filtered = append(filtered, i)
		}
	}
	if len(filtered) < max(e.prefilterMin, limit*2) {
		e.logger.Debug().Int("matched", len(filtered)).Msg("pre-filter too narrow, scoring all destinations")
		return all
	}
	return filtered
}

// scoreAll scores candidates in parallel chunks. The returned slice is
// aligned with candidates.
func (e *Engine) scoreAll(ctx context.Context, query string, tokens []string, short bool, dests []catalog.Destination, candidates []int) ([]float64, error) {
	scores := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return scores, nil
	}

	chunk := (len(candidates) + e.workers - 1) / e.workers
	g, gctx := errgroup.WithContext(ctx)
	for from := 0; from < len(candidates); from += chunk {
		to := min(from+chunk, len(candidates))
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("scoring panicked: %v", r)
				}
			}()
			for i := from; i < to; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				scores[i] = e.score(gctx, query, tokens, short, &dests[candidates[i]])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// score applies the name/city/country boosts on top of backend similarity.
// The name boost is applied once regardless of query length.
func (e *Engine) score(ctx context.Context, query string, tokens []string, short bool, d *catalog.Destination) float64 {
	blob := weightedText(d)
	sim := e.backend.Similarity(ctx, query, blob)

	if short {
		if d.City != "" && containsAny(strings.ToLower(d.City), tokens) {
			sim *= 2.0
		}
		if d.Country != "" && containsAny(strings.ToLower(d.Country), tokens) {
			sim *= 2.0
		} else if containsAny(strings.ToLower(blob), tokens) {
			sim *= 1.3
		}
	}
	if containsAny(strings.ToLower(d.Name), tokens) {
		sim *= 1.5
	}
	return sim
}

func (e *Engine) safeKeywordSearch(query string, dests []catalog.Destination, limit int) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("keyword search panicked: %v", r)
		}
	}()
	return KeywordSearch(query, dests, limit), nil
}

// randomSample returns up to limit distinct destinations scored 0.1. It is
// never cached.
func (e *Engine) randomSample(dests []catalog.Destination, limit int) []Result {
	n := min(limit, len(dests))
	e.rngMu.Lock()
	perm := e.rng.Perm(len(dests))
	e.rngMu.Unlock()

	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{Destination: &dests[perm[i]], Score: randomScore}
	}
	return results
}

func (e *Engine) observe(query string, limit, count int, strategy Strategy, start time.Time) {
	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(string(strategy)).Observe(elapsed.Seconds())
	e.logger.Debug().
		Str("query", query).
		Int("limit", limit).
		Int("results", count).
		Str("strategy", string(strategy)).
		Dur("duration", elapsed).
		Msg("search complete")
	if e.recorder != nil {
		e.recorder.Track(history.NewSearchEvent(query, limit, count, string(strategy), elapsed))
	}
}

// weightedText is the scoring text of a destination: city and country are
// repeated three times, and at most five subcategories and subtypes are used.
func weightedText(d *catalog.Destination) string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte(' ')
	b.WriteString(d.Description)
	if d.City != "" {
		for range 3 {
			b.WriteByte(' ')
			b.WriteString(d.City)
		}
	}
	if d.Country != "" {
		for range 3 {
			b.WriteByte(' ')
			b.WriteString(d.Country)
		}
	}
	if len(d.Subcategories) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(d.Subcategories[:min(blobListLimit, len(d.Subcategories))], " "))
	}
	if len(d.Subtypes) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(d.Subtypes[:min(blobListLimit, len(d.Subtypes))], " "))
	}
	return b.String()
}

// haystack is the lowercased pre-filter text of a destination.
func haystack(d *catalog.Destination) string {
	s := strings.ToLower(d.Name + " " + d.Description)
	if d.City != "" {
		s += " " + strings.ToLower(d.City)
	}
	if d.Country != "" {
		s += " " + strings.ToLower(d.Country)
	}
	return s
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
