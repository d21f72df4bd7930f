package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/catalog"
)

func TestKeywordSearch_SynonymsAndDropping(t *testing.T) {
	dests := []catalog.Destination{
		{ID: 1, Name: "Harbor", Description: "peaceful marina"},
		{ID: 2, Name: "Quiet Cove", Description: "sandy beach", City: "Nha Trang", Country: "Vietnam"},
		{ID: 3, Name: "Mall", Description: "shopping"},
	}

	results := KeywordSearch("Quiet", dests, 10)
	require.Len(t, results, 2)
	assert.Equal(t, []int64{2, 1}, IDs(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Greater(t, results[1].Score, 0.2)
	assert.Less(t, results[1].Score, 1.0)
}

func TestKeywordSearch_CityAndCountryBoosts(t *testing.T) {
	dests := []catalog.Destination{
		{ID: 1, Name: "Old Town", Description: "walk around rome"},
		{ID: 2, Name: "Forum", City: "Rome", Country: "Italy"},
	}

	results := KeywordSearch("rome", dests, 10)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Destination.ID)
}

func TestKeywordSearch_Truncates(t *testing.T) {
	dests := []catalog.Destination{
		{ID: 1, Name: "Beach One"},
		{ID: 2, Name: "Beach Two"},
		{ID: 3, Name: "Beach Three"},
	}
	results := KeywordSearch("beach", dests, 2)
	assert.Equal(t, []int64{1, 2}, IDs(results))
}

func TestKeywordSearch_NoMatches(t *testing.T) {
	dests := []catalog.Destination{{ID: 1, Name: "Harbor"}}
	assert.Empty(t, KeywordSearch("volcano", dests, 5))
	assert.Empty(t, KeywordSearch("", dests, 5))
}

func TestSmooth(t *testing.T) {
	assert.InDelta(t, 1.0, smooth(2, 2), 1e-9)
	// raw/max = 0.5: normalized 0.6, then 0.2 + 0.8/2.
	assert.InDelta(t, 0.6, smooth(1, 2), 1e-9)
}

func TestSynonyms(t *testing.T) {
	assert.Contains(t, Synonyms("Clean"), "tidy")
	assert.Nil(t, Synonyms("volcano"))
}
