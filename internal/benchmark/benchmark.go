/*
Package benchmark measures search latency with and without the result cache.

Each query is searched once against an empty cache (cold) and then repeated
against the warm cache. The cold pass pays for similarity scoring over the
whole catalog; the warm pass only pays for a cache lookup.
*/
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khanglvm/tripsense/internal/cache"
	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/search"
)

// DefaultQueries is a mix of short and descriptive queries.
var DefaultQueries = []string{
	"paris",
	"museum",
	"beach in spain",
	"quiet garden with a view",
	"historic castle tour",
	"family friendly theme park",
	"art gallery with modern paintings",
	"hiking trail near mountains",
}

// DefaultIterations is the number of warm repetitions per query.
const DefaultIterations = 5

// Searcher is the part of the search engine the benchmark drives.
type Searcher interface {
	Search(ctx context.Context, query string, dests []catalog.Destination, limit int) ([]search.Result, error)
	Purge()
	CacheStats() cache.Stats
}

// QueryResult holds the timings of one query.
type QueryResult struct {
	Query   string        `json:"query"`
	Results int           `json:"results"`
	Cold    time.Duration `json:"coldNs"`
	Warm    time.Duration `json:"warmNs"`
}

// Result contains comparison results.
type Result struct {
	Destinations int           `json:"destinations"`
	Iterations   int           `json:"iterations"`
	Queries      []QueryResult `json:"queries"`
	ColdAverage  time.Duration `json:"coldAverageNs"`
	WarmAverage  time.Duration `json:"warmAverageNs"`
	Speedup      float64       `json:"speedup"`
	CacheHitRate float64       `json:"cacheHitRate"`
}

// Run benchmarks queries against dests. The engine cache is purged first,
// so any previously cached results do not count as cold runs.
func Run(ctx context.Context, engine Searcher, dests []catalog.Destination, queries []string, limit, iterations int) (*Result, error) {
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	engine.Purge()
	before := engine.CacheStats()

	result := &Result{
		Destinations: len(dests),
		Iterations:   iterations,
		Queries:      make([]QueryResult, 0, len(queries)),
	}

	var coldTotal, warmTotal time.Duration
	for _, q := range queries {
		start := time.Now()
		hits, err := engine.Search(ctx, q, dests, limit)
		if err != nil {
			return nil, fmt.Errorf("cold search %q: %w", q, err)
		}
		cold := time.Since(start)

		start = time.Now()
		for range iterations {
			if _, err := engine.Search(ctx, q, dests, limit); err != nil {
				return nil, fmt.Errorf("warm search %q: %w", q, err)
			}
		}
		warm := time.Since(start) / time.Duration(iterations)

		coldTotal += cold
		warmTotal += warm
		result.Queries = append(result.Queries, QueryResult{
			Query:   q,
			Results: len(hits),
			Cold:    cold,
			Warm:    warm,
		})
	}

	n := time.Duration(len(queries))
	result.ColdAverage = coldTotal / n
	result.WarmAverage = warmTotal / n
	if result.WarmAverage > 0 {
		result.Speedup = float64(result.ColdAverage) / float64(result.WarmAverage)
	}

	after := engine.CacheStats()
	hits := after.Hits - before.Hits
	lookups := hits + after.Misses - before.Misses
	if lookups > 0 {
		result.CacheHitRate = float64(hits) / float64(lookups)
	}
	return result, nil
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║              SEARCH LATENCY BENCHMARK RESULTS                ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString(fmt.Sprintf("║  Destinations: %-8d Warm iterations per query: %-4d     ║\n", result.Destinations, result.Iterations))
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")
	sb.WriteString("\n")

	width := len("Query")
	for _, q := range result.Queries {
		width = max(width, len(q.Query))
	}
	sb.WriteString(fmt.Sprintf("%-*s  %7s  %12s  %12s\n", width, "Query", "Results", "Cold", "Warm"))
	for _, q := range result.Queries {
		sb.WriteString(fmt.Sprintf("%-*s  %7d  %12s  %12s\n", width, q.Query, q.Results, round(q.Cold), round(q.Warm)))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Average cold: %s\n", round(result.ColdAverage)))
	sb.WriteString(fmt.Sprintf("Average warm: %s\n", round(result.WarmAverage)))
	sb.WriteString(fmt.Sprintf("Speedup:      %.1fx\n", result.Speedup))
	sb.WriteString(fmt.Sprintf("Cache hits:   %.1f%%\n", result.CacheHitRate*100))

	return sb.String()
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}
