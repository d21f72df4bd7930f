/*
Package recommend blends user activity signals into ranked destination lists.

A user with no likes or reviews gets destinations matching their selected
tags. Active users get a mix of keyword search over their review keywords
and attribute matches on the subcategories, subtypes and countries of the
destinations they liked. Remaining slots are filled from selected tags and
then by popularity. Recently viewed destinations produce a separate list.
*/
package recommend

import "github.com/khanglvm/tripsense/internal/catalog"

// Type tags the signal an item came from.
type Type string

const (
	TypeGeneral        Type = "general"
	TypeKeyword        Type = "keyword"
	TypeSubcategory    Type = "subcategory"
	TypeSubtype        Type = "subtype"
	TypeCountry        Type = "country"
	TypeRecentlyViewed Type = "recently_viewed"
	TypeTag            Type = "tag"
	TypePopular        Type = "popular"
)

// Item is one recommended destination.
type Item struct {
	Destination *catalog.Destination `json:"destination"`
	Score       float64              `json:"similarity_score"`
	Type        Type                 `json:"recommendation_type"`
}

// TagGroup holds the destinations recommended for one selected tag.
type TagGroup struct {
	Tag   string `json:"tag"`
	Items []Item `json:"items"`
}

// Bundle is the full answer to a recommendation request.
type Bundle struct {
	ActivityWeight float64 `json:"activity_weight"`
	TagWeight      float64 `json:"tag_weight"`

	// Results is the blended list. Its items are typed general.
	Results []Item `json:"results"`

	Keyword        []Item     `json:"keyword_recommendations"`
	Subcategory    []Item     `json:"subcategory_recommendations"`
	Subtype        []Item     `json:"subtype_recommendations"`
	Country        []Item     `json:"country_recommendations"`
	RecentlyViewed []Item     `json:"recently_viewed_recommendations"`
	TagGroups      []TagGroup `json:"tag_group_recommendations"`
}

// Request describes who to recommend for.
type Request struct {
	// Activity is the user's likes, reviews and tags. Nil means a new user.
	Activity *catalog.UserActivity

	// Limit caps every list. Must be positive.
	Limit int

	// RecentlyViewed overrides Activity.RecentlyViewed when non-empty.
	RecentlyViewed []catalog.Viewed

	// Exclude removes destinations from every list.
	Exclude []int64
}

func newBundle(activityWeight float64) *Bundle {
	return &Bundle{
		ActivityWeight: activityWeight,
		TagWeight:      1 - activityWeight,
		Results:        []Item{},
		Keyword:        []Item{},
		Subcategory:    []Item{},
		Subtype:        []Item{},
		Country:        []Item{},
		RecentlyViewed: []Item{},
		TagGroups:      []TagGroup{},
	}
}

// idSet is a set of destination IDs.
type idSet map[int64]struct{}

func (s idSet) add(id int64) { s[id] = struct{}{} }

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) addItems(items []Item) {
	for _, it := range items {
		s.add(it.Destination.ID)
	}
}

// dedupe keeps the first item per destination.
func dedupe(items []Item) []Item {
	seen := idSet{}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if seen.has(it.Destination.ID) {
			continue
		}
		seen.add(it.Destination.ID)
		out = append(out, it)
	}
	return out
}

func retype(items []Item, t Type) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{Destination: it.Destination, Score: it.Score, Type: t}
	}
	return out
}

func truncate(items []Item, limit int) []Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
