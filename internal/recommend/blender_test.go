package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/review"
	"github.com/khanglvm/tripsense/internal/search"
	"github.com/khanglvm/tripsense/internal/sentiment"
	"github.com/khanglvm/tripsense/internal/text"
)

type hit struct {
	id    int64
	score float64
}

type fakeSearcher struct {
	mu        sync.Mutex
	responses map[string][]hit
	queries   []string
	err       error
}

func (f *fakeSearcher) Search(_ context.Context, query string, dests []catalog.Destination, _ int) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	var out []search.Result
	for _, h := range f.responses[query] {
		for i := range dests {
			if dests[i].ID == h.id {
				out = append(out, search.Result{Destination: &dests[i], Score: h.score})
			}
		}
	}
	return out, nil
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Destination{
		{ID: 1, Name: "Louvre", Category: "Museum", Country: "France", Subcategories: []string{"Museums"}, Subtypes: []string{"Art Museums"}, LikeCount: 10},
		{ID: 2, Name: "Orsay", Category: "Museum", Country: "France", Subcategories: []string{"Museums"}, Subtypes: []string{"Art Museums"}, LikeCount: 8},
		{ID: 3, Name: "Rodin", Country: "France", Subcategories: []string{"Museums"}, Subtypes: []string{"Specialty Museums"}, LikeCount: 1},
		{ID: 4, Name: "Colosseum", Country: "Italy", Subcategories: []string{"Sights & Landmarks"}, Subtypes: []string{"Ancient Ruins"}, LikeCount: 20},
		{ID: 5, Name: "Uffizi", Country: "Italy", Subcategories: []string{"Museums"}, Subtypes: []string{"Art Museums"}, LikeCount: 5},
		{ID: 6, Name: "Beach Club", Category: "Beach", Country: "Spain", Subcategories: []string{"Outdoor Activities"}, Subtypes: []string{"Beaches"}, LikeCount: 3},
	}, nil)
}

func newTestBlender(s Searcher) *Blender {
	return NewBlender(s, nil, 42, zerolog.Nop())
}

func ids(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.Destination.ID
	}
	return out
}

func TestRecommend_InvalidLimit(t *testing.T) {
	_, err := newTestBlender(&fakeSearcher{}).Recommend(context.Background(), testCatalog(), Request{})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestRecommend_NoActivityIsPopularityOnly(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, 0.0, bundle.ActivityWeight)
	assert.Equal(t, 1.0, bundle.TagWeight)
	assert.Equal(t, []int64{4, 1, 2}, ids(bundle.Results))
	for _, it := range bundle.Results {
		assert.Equal(t, 0.5, it.Score)
		assert.Equal(t, TypeGeneral, it.Type)
	}
	assert.Empty(t, bundle.Keyword)
	assert.Empty(t, bundle.Subcategory)
	assert.Empty(t, bundle.Subtype)
	assert.Empty(t, bundle.Country)
	assert.Empty(t, bundle.TagGroups)
}

func TestRecommend_NewUserTagGroups(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	user := &catalog.UserActivity{SelectedTags: []string{"Beach", "museum", "Volcanoes"}}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 10})
	require.NoError(t, err)

	require.Len(t, bundle.TagGroups, 2)
	assert.Equal(t, "Beach", bundle.TagGroups[0].Tag)
	assert.Equal(t, []int64{6}, ids(bundle.TagGroups[0].Items))
	assert.Equal(t, "museum", bundle.TagGroups[1].Tag)
	assert.Equal(t, []int64{1, 2, 3, 5}, ids(bundle.TagGroups[1].Items))
	for _, it := range bundle.TagGroups[1].Items {
		assert.Equal(t, 0.7, it.Score)
		assert.Equal(t, TypeTag, it.Type)
	}

	// Tag matches first, then the popularity fill.
	assert.Equal(t, []int64{6, 1, 2, 3, 5, 4}, ids(bundle.Results))
	assert.Equal(t, 0.5, bundle.Results[5].Score)
}

func TestRecommend_LikedAttributes(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	user := &catalog.UserActivity{Likes: []catalog.Like{{DestinationID: 1}}}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 5})
	require.NoError(t, err)

	assert.InDelta(t, 0.1, bundle.ActivityWeight, 1e-9)
	assert.ElementsMatch(t, []int64{2, 3, 5}, ids(bundle.Subcategory))
	for _, it := range bundle.Subcategory {
		assert.Contains(t, []float64{0.75, 0.80, 0.85}, roundScore(it.Score))
	}
	// Everything the subtype and country passes could offer is already taken.
	assert.Empty(t, bundle.Subtype)
	assert.Empty(t, bundle.Country)

	require.Len(t, bundle.Results, 5)
	assert.ElementsMatch(t, []int64{2, 3, 5}, ids(bundle.Results[:3]))
	assert.Equal(t, []int64{4, 6}, ids(bundle.Results[3:]))
	assert.NotContains(t, ids(bundle.Results), int64(1))
}

func roundScore(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func TestRecommend_DuplicatesKeepFirstScore(t *testing.T) {
	s := &fakeSearcher{responses: map[string][]hit{
		"museum": {{id: 2, score: 0.3}, {id: 6, score: 0.25}},
	}}
	b := newTestBlender(s)
	user := &catalog.UserActivity{
		Likes: []catalog.Like{{DestinationID: 1}},
		Reviews: []catalog.Review{
			{DestinationID: 4, Content: "x", Rating: 5, Keywords: catalog.ReviewKeywords{Positive: []string{"museum"}}},
		},
	}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 6}, ids(bundle.Keyword))
	assert.Contains(t, ids(bundle.Subcategory), int64(2))

	count := 0
	for _, it := range bundle.Results {
		if it.Destination.ID == 2 {
			count++
			assert.Equal(t, 0.3, it.Score)
		}
	}
	assert.Equal(t, 1, count)
}

func TestRecommend_AvoidAndLowRatedExclusions(t *testing.T) {
	s := &fakeSearcher{responses: map[string][]hit{
		"museum":  {{id: 2, score: 0.9}, {id: 3, score: 0.8}, {id: 6, score: 0.7}},
		"crowded": {{id: 2, score: 0.5}, {id: 3, score: 0.1}},
	}}
	b := newTestBlender(s)
	user := &catalog.UserActivity{
		Reviews: []catalog.Review{
			{DestinationID: 4, Content: "x", Rating: 5, Keywords: catalog.ReviewKeywords{Positive: []string{"museum"}}},
			{DestinationID: 6, Content: "x", Rating: 1, Keywords: catalog.ReviewKeywords{Negative: []string{"very", "crowded"}}},
		},
	}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, ids(bundle.Keyword))
	assert.Equal(t, []string{"museum", "crowded"}, s.queries)
}

func TestRecommend_LegacyKeywordsFollowRating(t *testing.T) {
	s := &fakeSearcher{}
	b := newTestBlender(s)
	user := &catalog.UserActivity{
		Reviews: []catalog.Review{
			{DestinationID: 4, Content: "x", Rating: 5, Keywords: catalog.ReviewKeywords{Legacy: []string{"castle"}}},
			{DestinationID: 5, Content: "x", Rating: 3, Sentiment: "NEGATIVE", Keywords: catalog.ReviewKeywords{Legacy: []string{"queue"}}},
		},
	}

	_, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"castle", "queue"}, s.queries)
}

func TestRecommend_AnalyzesReviewsWithoutKeywords(t *testing.T) {
	s := &fakeSearcher{}
	analyzer := review.NewAnalyzer(sentiment.NewLexicon(), nil, text.MustNew(), zerolog.Nop())
	b := NewBlender(s, analyzer, 42, zerolog.Nop())
	user := &catalog.UserActivity{
		Reviews: []catalog.Review{{DestinationID: 4, Content: "Lovely quiet garden", Rating: 5}},
	}

	_, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"lovely quiet garden"}, s.queries)
}

func TestRecommend_SearchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	b := newTestBlender(&fakeSearcher{err: boom})
	user := &catalog.UserActivity{
		Reviews: []catalog.Review{{DestinationID: 4, Content: "x", Rating: 5, Keywords: catalog.ReviewKeywords{Positive: []string{"museum"}}}},
	}

	_, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 5})
	assert.ErrorIs(t, err, boom)
}

func TestRecommend_TagSupplementForLightUsers(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	user := &catalog.UserActivity{
		SelectedTags: []string{"Beach"},
		Likes:        []catalog.Like{{DestinationID: 4}},
	}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 10})
	require.NoError(t, err)

	// Colosseum's subcategory and subtype match nothing else; Italy gives Uffizi.
	assert.Equal(t, []int64{5}, ids(bundle.Country))
	require.GreaterOrEqual(t, len(bundle.Results), 2)
	assert.Equal(t, int64(6), bundle.Results[1].Destination.ID)
	assert.Equal(t, 0.6, bundle.Results[1].Score)
}

func TestRecommend_ExcludeRemovesEverywhere(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Limit: 10, Exclude: []int64{4}, RecentlyViewed: testCatalog().Viewed([]int64{5})})
	require.NoError(t, err)
	assert.NotContains(t, ids(bundle.Results), int64(4))
	assert.NotContains(t, ids(bundle.RecentlyViewed), int64(4))
}

func TestRecommend_RecentlyViewed(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	user := &catalog.UserActivity{RecentlyViewed: []int64{5}}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Activity: user, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 4, 3}, ids(bundle.RecentlyViewed))
	want := []float64{0.4, 0.4, 0.3, 0.2}
	for i, it := range bundle.RecentlyViewed {
		assert.InDelta(t, want[i], it.Score, 1e-9)
		assert.Equal(t, TypeRecentlyViewed, it.Type)
	}
}

func TestRecommend_RecentlyViewedOutsideCatalog(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	viewed := []catalog.Viewed{{ID: 500, Country: "Italy"}}

	bundle, err := b.Recommend(context.Background(), testCatalog(), Request{Limit: 10, RecentlyViewed: viewed})
	require.NoError(t, err)

	require.NotEmpty(t, bundle.RecentlyViewed)
	for _, it := range bundle.RecentlyViewed {
		assert.Equal(t, "Italy", it.Destination.Country)
		assert.InDelta(t, 0.3, it.Score, 1e-9)
	}
}

func TestRefineAvoid(t *testing.T) {
	assert.Equal(t, []string{"empty_large", "nothing"}, refineAvoid([]string{"very", "large", "nothing"}))
	assert.Equal(t, []string{"large"}, refineAvoid([]string{"large", "really"}))
}

func TestBanded(t *testing.T) {
	b := newTestBlender(&fakeSearcher{})
	dests := testCatalog().All()
	matches := []*catalog.Destination{&dests[0], &dests[1], &dests[2], &dests[3], &dests[4]}

	items := b.banded(matches, 0.7, TypeSubtype, 5)
	require.Len(t, items, 5)
	want := []float64{0.70, 0.75, 0.80, 0.85, 0.70}
	for i, it := range items {
		assert.InDelta(t, want[i], it.Score, 1e-9)
	}
}
