/*
Package search ranks destinations against free-text queries.

Engine.Search scores every candidate with a similarity backend, applies
name/city/country boosts, and memoizes the ranked slice per (query, limit).
When the primary path fails it falls back to KeywordSearch, and as a last
resort to a random sample scored 0.1.
*/
package search

import "github.com/khanglvm/tripsense/internal/catalog"

// Strategy names which path produced a result list.
type Strategy string

const (
	StrategyCache    Strategy = "cache"
	StrategySemantic Strategy = "semantic"
	StrategyKeyword  Strategy = "keyword"
	StrategyRandom   Strategy = "random"
)

// Result is one ranked destination. Score is not clamped and may exceed 1
// after boosts.
type Result struct {
	Destination *catalog.Destination `json:"destination"`
	Score       float64              `json:"similarity_score"`
}

// IDs returns the destination identifiers of results in rank order.
func IDs(results []Result) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.Destination.ID
	}
	return ids
}

// cacheKey identifies a memoized search.
type cacheKey struct {
	query string
	limit int
}
