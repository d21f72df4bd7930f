package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/khanglvm/tripsense/internal/catalog"
)

// synonyms expands keyword queries with related travel vocabulary.
var synonyms = map[string][]string{
	"clean":     {"neat", "tidy", "spotless", "immaculate", "pristine"},
	"cozy":      {"comfortable", "warm", "snug", "homely", "intimate", "pleasant"},
	"excited":   {"thrilling", "exciting", "fun", "entertainment", "thrill", "adventure", "joy", "happy"},
	"beautiful": {"pretty", "scenic", "gorgeous", "lovely", "stunning", "attractive"},
	"quiet":     {"peaceful", "calm", "serene", "tranquil", "silent", "relaxing"},
	"historic":  {"ancient", "old", "traditional", "heritage", "historical", "classic"},
	"modern":    {"contemporary", "new", "trendy", "stylish", "innovative"},
	"nature":    {"natural", "outdoor", "green", "park", "garden", "forest", "mountain", "lake", "river"},
	"food":      {"restaurant", "cuisine", "dining", "eat", "culinary", "gastronomy", "delicious"},
	"shopping":  {"shop", "store", "mall", "market", "boutique", "retail"},
	"family":    {"kid", "child", "children", "friendly", "fun"},
	"luxury":    {"luxurious", "upscale", "premium", "elegant", "fancy", "high-end"},
	"budget":    {"cheap", "affordable", "inexpensive", "economical", "reasonable"},
	"view":      {"vista", "panorama", "overlook", "scenery", "landscape", "scenic"},
}

// Synonyms returns the expansion list for word, or nil.
func Synonyms(word string) []string {
	return synonyms[strings.ToLower(word)]
}

// KeywordSearch ranks destinations by plain word matching. Exact word,
// substring and synonym matches contribute 0.6, 0.3 and 0.1 per query word,
// boosted by 1.5 for a name match and 2.0 each for city and country matches.
// Destinations without any match are dropped. Surviving scores are rescaled
// into [0.2, 1.0] relative to the best match and smoothed, so the best match
// always scores 1.0.
func KeywordSearch(query string, dests []catalog.Destination, limit int) []Result {
	words := uniqueTokens(strings.Fields(strings.ToLower(query)))
	expanded := slices.Clone(words)
	for _, w := range words {
		for _, s := range synonyms[w] {
			if !slices.Contains(expanded, s) {
				expanded = append(expanded, s)
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var raw []scored
	maxScore := 0.0

	for i := range dests {
		d := &dests[i]
		text, cityMatch, countryMatch := keywordText(d, words)
		padded := " " + text + " "

		exact, partial, synonym := 0, 0, 0
		for _, w := range words {
			if strings.Contains(padded, " "+w+" ") {
				exact++
			}
			if strings.Contains(text, w) {
				partial++
			}
		}
		for _, w := range expanded {
			if strings.Contains(text, w) {
				synonym++
			}
		}

		score := float64(exact)*0.6 + float64(partial)*0.3 + float64(synonym)*0.1
		if containsAny(strings.ToLower(d.Name), words) {
			score *= 1.5
		}
		if cityMatch {
			score *= 2.0
		}
		if countryMatch {
			score *= 2.0
		}
		if score > 0 {
			raw = append(raw, scored{idx: i, score: score})
			maxScore = max(maxScore, score)
		}
	}

	results := make([]Result, len(raw))
	for i, r := range raw {
		results[i] = Result{Destination: &dests[r.idx], Score: smooth(r.score, maxScore)}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return truncate(results, limit)
}

// keywordText builds the lowercased match text and reports city and country hits.
func keywordText(d *catalog.Destination, words []string) (text string, cityMatch, countryMatch bool) {
	var b strings.Builder
	b.WriteString(strings.ToLower(d.Name + " " + d.Description))
	if d.Category != "" {
		b.WriteString(" " + strings.ToLower(d.Category))
	}
	if d.City != "" {
		city := strings.ToLower(d.City)
		for range 3 {
			b.WriteString(" " + city)
		}
		cityMatch = containsAny(city, words)
	}
	if d.Country != "" {
		country := strings.ToLower(d.Country)
		for range 3 {
			b.WriteString(" " + country)
		}
		countryMatch = containsAny(country, words)
	}
	if len(d.Subcategories) > 0 {
		b.WriteString(" " + strings.ToLower(strings.Join(d.Subcategories, " ")))
	}
	return b.String(), cityMatch, countryMatch
}

// smooth maps a raw score onto [0.2, 1.0] with a logistic-like curve.
func smooth(score, maxScore float64) float64 {
	normalized := 0.2 + 0.8*(score/maxScore)
	return 0.2 + 0.8/(1+2.5*(1-normalized))
}
