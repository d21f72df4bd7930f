package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/review"
	"github.com/khanglvm/tripsense/internal/search"
	"github.com/khanglvm/tripsense/internal/sentiment"
	"github.com/khanglvm/tripsense/internal/text"
)

// ErrInvalidLimit is returned when a request asks for zero or fewer items.
var ErrInvalidLimit = errors.New("recommendation limit must be positive")

const (
	activitySaturation = 10.0
	minTagWeight       = 0.1
	perTagLimit        = 5

	topReviewKeywords  = 10
	topSubcategories   = 5
	topSubtypes        = 5
	topCountries       = 3
	avoidScoreMinimum  = 0.2
	recentMinimumScore = 0.2
	recentMaximumScore = 0.7

	tagScore        = 0.7
	tagSupplement   = 0.6
	popularScore    = 0.5
	subcategoryBase = 0.75
	subtypeBase     = 0.70
	countryBase     = 0.65
	bandStep        = 0.05
)

// Searcher ranks destinations against a query.
type Searcher interface {
	Search(ctx context.Context, query string, dests []catalog.Destination, limit int) ([]search.Result, error)
}

// Blender assembles recommendation bundles. It is safe for concurrent use.
type Blender struct {
	searcher Searcher
	analyzer *review.Analyzer
	logger   zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewBlender creates a blender. analyzer may be nil; when set, reviews
// without stored keywords are analyzed on the fly. A zero seed seeds from
// the clock.
func NewBlender(searcher Searcher, analyzer *review.Analyzer, seed uint64, logger zerolog.Logger) *Blender {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Blender{
		searcher: searcher,
		analyzer: analyzer,
		logger:   logger.With().Str("component", "recommend").Logger(),
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Recommend builds a bundle for req over the destinations of cat.
func (b *Blender) Recommend(ctx context.Context, cat *catalog.Catalog, req Request) (*Bundle, error) {
	if req.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()

	activity := req.Activity
	if activity == nil {
		activity = &catalog.UserActivity{}
	}
	total := activity.ActivityCount()
	bundle := newBundle(min(float64(total)/activitySaturation, 1.0))

	liked := idSet{}
	for _, l := range activity.Likes {
		liked.add(l.DestinationID)
	}
	blocked := idSet{}
	for id := range liked {
		blocked.add(id)
	}
	for _, id := range req.Exclude {
		blocked.add(id)
	}

	if total == 0 {
		b.tagGroups(cat, activity.SelectedTags, blocked, req.Limit, bundle)
	} else if err := b.fromActivity(ctx, cat, activity, blocked, req.Limit, bundle); err != nil {
		return nil, err
	}

	if bundle.TagWeight > minTagWeight && len(bundle.Results) < req.Limit && total > 0 {
		bundle.Results = append(bundle.Results, supplementFromTags(cat, activity.SelectedTags, blocked, bundle.Results, req.Limit)...)
	}
	if len(bundle.Results) < req.Limit {
		bundle.Results = append(bundle.Results, fillByPopularity(cat, blocked, bundle.Results, req.Limit)...)
	}

	recent := req.RecentlyViewed
	if len(recent) == 0 {
		recent = cat.Viewed(activity.RecentlyViewed)
	}
	bundle.RecentlyViewed = recentlyViewed(cat, recent, blocked, req.Limit)

	b.logger.Debug().
		Int64("user", activity.UserID).
		Int("activities", total).
		Int("results", len(bundle.Results)).
		Msg("recommendations assembled")
	return bundle, nil
}

// tagGroups serves users without activity: each selected tag contributes up
// to five destinations matching it by category, subcategory or subtype.
func (b *Blender) tagGroups(cat *catalog.Catalog, tags []string, blocked idSet, limit int, bundle *Bundle) {
	var all []Item
	for _, tag := range tags {
		matches := matchTag(cat.All(), tag, blocked)
		if len(matches) == 0 {
			continue
		}
		items := make([]Item, 0, perTagLimit)
		for _, d := range matches[:min(perTagLimit, len(matches))] {
			items = append(items, Item{Destination: d, Score: tagScore, Type: TypeTag})
		}
		bundle.TagGroups = append(bundle.TagGroups, TagGroup{Tag: tag, Items: items})
		all = append(all, items...)
	}
	bundle.Results = retype(truncate(dedupe(all), limit), TypeGeneral)
}

// matchTag returns destinations whose category equals tag, then those with a
// subcategory containing it, then those with a subtype containing it.
func matchTag(dests []catalog.Destination, tag string, blocked idSet) []*catalog.Destination {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	lower := strings.ToLower(tag)
	var exact, bySubcategory, bySubtype []*catalog.Destination
	for i := range dests {
		d := &dests[i]
		if d.Category == tag {
			exact = append(exact, d)
		}
		if containsFold(d.Subcategories, lower) {
			bySubcategory = append(bySubcategory, d)
		}
		if containsFold(d.Subtypes, lower) {
			bySubtype = append(bySubtype, d)
		}
	}

	seen := idSet{}
	var out []*catalog.Destination
	for _, d := range slices.Concat(exact, bySubcategory, bySubtype) {
		if seen.has(d.ID) || blocked.has(d.ID) {
			continue
		}
		seen.add(d.ID)
		out = append(out, d)
	}
	return out
}

func (b *Blender) fromActivity(ctx context.Context, cat *catalog.Catalog, activity *catalog.UserActivity, blocked idSet, limit int, bundle *Bundle) error {
	var subcategories, subtypes, countries []string
	for _, l := range activity.Likes {
		d, ok := cat.Get(l.DestinationID)
		if !ok {
			continue
		}
		subcategories = append(subcategories, d.Subcategories...)
		subtypes = append(subtypes, d.Subtypes...)
		if d.Country != "" {
			countries = append(countries, d.Country)
		}
	}

	positive, negative, lowRated := b.reviewSignals(ctx, activity.Reviews)
	topPositive := review.MostCommon(positive, topReviewKeywords)
	topNegative := review.MostCommon(negative, topReviewKeywords)

	var blended []Item
	if len(topPositive) > 0 || len(topNegative) > 0 {
		exclude := idSet{}
		for id := range blocked {
			exclude.add(id)
		}
		for _, id := range lowRated {
			exclude.add(id)
		}
		found, err := b.findSimilar(ctx, cat.All(), topPositive, topNegative, exclude, limit)
		if err != nil {
			return fmt.Errorf("keyword recommendations: %w", err)
		}
		bundle.Keyword = found
		blended = append(blended, found...)
	}

	taken := idSet{}
	if len(subcategories) > 0 {
		top := review.MostCommon(subcategories, topSubcategories)
		matches := filterDestinations(cat.All(), blocked, taken, func(d *catalog.Destination) bool {
			return slices.ContainsFunc(top, func(s string) bool { return slices.Contains(d.Subcategories, s) })
		})
		bundle.Subcategory = b.banded(matches, subcategoryBase, TypeSubcategory, limit)
		taken.addItems(bundle.Subcategory)
		blended = append(blended, bundle.Subcategory...)
	}

	if len(subtypes) > 0 {
		top := review.MostCommon(subtypes, topSubtypes)
		matches := filterDestinations(cat.All(), blocked, taken, func(d *catalog.Destination) bool {
			return slices.ContainsFunc(top, func(s string) bool {
				return slices.Contains(d.Subtypes, s) || containsFold(d.Subtypes, strings.ToLower(s))
			})
		})
		bundle.Subtype = b.banded(matches, subtypeBase, TypeSubtype, limit)
		taken.addItems(bundle.Subtype)
		blended = append(blended, bundle.Subtype...)
	}

	if len(countries) > 0 {
		top := review.MostCommon(countries, topCountries)
		matches := filterDestinations(cat.All(), blocked, taken, func(d *catalog.Destination) bool {
			return slices.Contains(top, d.Country)
		})
		bundle.Country = b.banded(matches, countryBase, TypeCountry, limit)
		blended = append(blended, bundle.Country...)
	}

	blended = dedupe(blended)
	slices.SortStableFunc(blended, func(x, y Item) int {
		return cmp.Compare(y.Score, x.Score)
	})
	bundle.Results = retype(truncate(blended, limit), TypeGeneral)
	return nil
}

// reviewSignals collects review keywords into positive and negative buckets
// and returns the destinations the user rated 2 or lower.
func (b *Blender) reviewSignals(ctx context.Context, reviews []catalog.Review) (positive, negative []string, lowRated []int64) {
	for _, r := range reviews {
		kw := r.Keywords
		if kw.Structured() && len(kw.Positive) == 0 && len(kw.Negative) == 0 && b.analyzer != nil && r.Content != "" {
			rating := float64(r.Rating)
			analysis := b.analyzer.Analyze(ctx, r.Content, &rating)
			kw = catalog.ReviewKeywords{Positive: analysis.PositiveKeywords, Negative: analysis.NegativeKeywords}
			r.Sentiment = string(analysis.Sentiment)
		}

		if kw.Structured() {
			positive = append(positive, kw.Positive...)
			negative = append(negative, kw.Negative...)
		} else {
			switch {
			case r.Rating >= 4:
				positive = append(positive, kw.Legacy...)
			case r.Rating <= 2:
				negative = append(negative, kw.Legacy...)
			case r.Sentiment == string(sentiment.Positive):
				positive = append(positive, kw.Legacy...)
			case r.Sentiment == string(sentiment.Negative):
				negative = append(negative, kw.Legacy...)
			}
		}

		if r.Rating <= 2 {
			lowRated = append(lowRated, r.DestinationID)
		}
	}
	return positive, negative, lowRated
}

// findSimilar searches for destinations matching keywords while avoiding
// those scoring above 0.2 for the avoid keywords. Adverbs are dropped from
// avoid, and large/big/huge/spacious become empty_<word> when "nothing" is
// also being avoided. Destinations in exclude never appear.
func (b *Blender) findSimilar(ctx context.Context, dests []catalog.Destination, keywords, avoid []string, exclude idSet, limit int) ([]Item, error) {
	if len(keywords) == 0 && len(avoid) == 0 {
		return []Item{}, nil
	}

	avoid = refineAvoid(avoid)
	skip := idSet{}
	for id := range exclude {
		skip.add(id)
	}

	var found []search.Result
	if query := strings.Join(keywords, " "); query != "" {
		results, err := b.searcher.Search(ctx, query, dests, limit*3)
		if err != nil {
			return nil, err
		}
		found = results
	}

	if len(avoid) > 0 {
		avoided, err := b.searcher.Search(ctx, strings.Join(avoid, " "), dests, limit*2)
		if err != nil {
			return nil, err
		}
		for _, r := range avoided {
			if r.Score > avoidScoreMinimum {
				skip.add(r.Destination.ID)
			}
		}
	}

	items := make([]Item, 0, limit)
	for _, r := range found {
		if skip.has(r.Destination.ID) {
			continue
		}
		items = append(items, Item{Destination: r.Destination, Score: r.Score, Type: TypeKeyword})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

var spaciousWords = map[string]bool{"large": true, "big": true, "huge": true, "spacious": true}

func refineAvoid(avoid []string) []string {
	out := make([]string, 0, len(avoid))
	for _, w := range avoid {
		if !text.IsAdverb(w) {
			out = append(out, w)
		}
	}
	if !slices.Contains(out, "nothing") {
		return out
	}
	for i, w := range out {
		if spaciousWords[w] {
			out[i] = "empty_" + w
		}
	}
	return out
}

// banded shuffles matches and scores the first limit of them base, base+0.05,
// base+0.10, base+0.15, then repeating.
func (b *Blender) banded(matches []*catalog.Destination, base float64, t Type, limit int) []Item {
	b.rngMu.Lock()
	b.rng.Shuffle(len(matches), func(i, j int) {
		matches[i], matches[j] = matches[j], matches[i]
	})
	b.rngMu.Unlock()

	matches = matches[:min(limit, len(matches))]
	items := make([]Item, len(matches))
	for i, d := range matches {
		items[i] = Item{Destination: d, Score: base + float64(i%4)*bandStep, Type: t}
	}
	return items
}

func filterDestinations(dests []catalog.Destination, blocked, taken idSet, keep func(*catalog.Destination) bool) []*catalog.Destination {
	var out []*catalog.Destination
	for i := range dests {
		d := &dests[i]
		if blocked.has(d.ID) || taken.has(d.ID) {
			continue
		}
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// supplementFromTags adds category matches for selected tags at 0.6.
func supplementFromTags(cat *catalog.Catalog, tags []string, blocked idSet, current []Item, limit int) []Item {
	seen := idSet{}
	seen.addItems(current)

	dests := cat.All()
	var extra []Item
	for _, tag := range tags {
		matched := 0
		for i := range dests {
			d := &dests[i]
			if matched == perTagLimit {
				break
			}
			if d.Category != tag || blocked.has(d.ID) {
				continue
			}
			matched++
			if seen.has(d.ID) {
				continue
			}
			seen.add(d.ID)
			extra = append(extra, Item{Destination: d, Score: tagSupplement, Type: TypeGeneral})
		}
	}
	return truncate(extra, limit-len(current))
}

// fillByPopularity adds the most liked destinations not yet present at 0.5.
func fillByPopularity(cat *catalog.Catalog, blocked idSet, current []Item, limit int) []Item {
	seen := idSet{}
	seen.addItems(current)

	remaining := limit - len(current)
	extra := make([]Item, 0, remaining)
	for _, d := range cat.ByPopularity() {
		if len(extra) == remaining {
			break
		}
		if seen.has(d.ID) || blocked.has(d.ID) {
			continue
		}
		extra = append(extra, Item{Destination: d, Score: popularScore, Type: TypeGeneral})
	}
	return extra
}

// recentlyViewed scores destinations resembling the viewed ones: 0.3 for a
// shared country, 0.2 each for a subcategory and a subtype containing a
// viewed one. Items scoring under 0.2 are dropped and scores cap at 0.7.
func recentlyViewed(cat *catalog.Catalog, viewed []catalog.Viewed, blocked idSet, limit int) []Item {
	if len(viewed) == 0 {
		return []Item{}
	}

	skip := idSet{}
	var countries, subcategories, subtypes []string
	for _, d := range viewed {
		skip.add(d.ID)
		if d.Country != "" && !slices.Contains(countries, d.Country) {
			countries = append(countries, d.Country)
		}
		for _, s := range d.Subcategories {
			if !slices.Contains(subcategories, strings.ToLower(s)) {
				subcategories = append(subcategories, strings.ToLower(s))
			}
		}
		for _, s := range d.Subtypes {
			if !slices.Contains(subtypes, strings.ToLower(s)) {
				subtypes = append(subtypes, strings.ToLower(s))
			}
		}
	}

	var items []Item
	dests := cat.All()
	for i := range dests {
		d := &dests[i]
		if blocked.has(d.ID) || skip.has(d.ID) {
			continue
		}
		score := 0.0
		if d.Country != "" && slices.Contains(countries, d.Country) {
			score += 0.3
		}
		if slices.ContainsFunc(subcategories, func(s string) bool { return containsFold(d.Subcategories, s) }) {
			score += 0.2
		}
		if slices.ContainsFunc(subtypes, func(s string) bool { return containsFold(d.Subtypes, s) }) {
			score += 0.2
		}
		if score >= recentMinimumScore {
			items = append(items, Item{Destination: d, Score: min(score, recentMaximumScore), Type: TypeRecentlyViewed})
		}
	}

	slices.SortStableFunc(items, func(x, y Item) int {
		return cmp.Compare(y.Score, x.Score)
	})
	if items == nil {
		return []Item{}
	}
	return truncate(items, limit)
}

// containsFold reports whether any value contains the lowercased needle,
// ignoring case.
func containsFold(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}
