package catalog

import (
	"errors"
	"sort"
)

// ErrUnknownUser is returned when a user ID is not in the snapshot.
var ErrUnknownUser = errors.New("unknown user")

// Catalog is an immutable snapshot of destinations and user activity.
// It is safe for concurrent reads.
type Catalog struct {
	destinations []Destination
	byID         map[int64]int
	users        map[int64]*UserActivity
	userOrder    []int64
	reviewsByID  map[int64][]Review
}

// New builds a catalog. A destination whose ID repeats replaces the earlier
// one in place. Destinations without a stored like count get one from the
// users' likes.
func New(destinations []Destination, users []UserActivity) *Catalog {
	c := &Catalog{
		destinations: make([]Destination, 0, len(destinations)),
		byID:         make(map[int64]int, len(destinations)),
		users:        make(map[int64]*UserActivity, len(users)),
		reviewsByID:  make(map[int64][]Review),
	}

	for _, d := range destinations {
		if idx, ok := c.byID[d.ID]; ok {
			c.destinations[idx] = d
			continue
		}
		c.byID[d.ID] = len(c.destinations)
		c.destinations = append(c.destinations, d)
	}

	counted := make(map[int64]int)
	for i := range users {
		u := users[i]
		if _, ok := c.users[u.UserID]; !ok {
			c.userOrder = append(c.userOrder, u.UserID)
		}
		c.users[u.UserID] = &u
		for _, l := range u.Likes {
			counted[l.DestinationID]++
		}
		for _, r := range u.Reviews {
			c.reviewsByID[r.DestinationID] = append(c.reviewsByID[r.DestinationID], r)
		}
	}

	for i := range c.destinations {
		if c.destinations[i].LikeCount == 0 {
			c.destinations[i].LikeCount = counted[c.destinations[i].ID]
		}
	}

	return c
}

// All returns destinations in snapshot order. Callers must not modify the slice.
func (c *Catalog) All() []Destination {
	return c.destinations
}

// Len returns the number of destinations.
func (c *Catalog) Len() int {
	return len(c.destinations)
}

// Get returns the destination with id.
func (c *Catalog) Get(id int64) (*Destination, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.destinations[idx], true
}

// User returns a user's activity.
func (c *Catalog) User(id int64) (*UserActivity, error) {
	u, ok := c.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u, nil
}

// Viewed resolves destination IDs to viewed items. IDs missing from the
// catalog keep only their ID.
func (c *Catalog) Viewed(ids []int64) []Viewed {
	out := make([]Viewed, 0, len(ids))
	for _, id := range ids {
		d, ok := c.Get(id)
		if !ok {
			out = append(out, Viewed{ID: id})
			continue
		}
		out = append(out, Viewed{ID: id, Country: d.Country, Subcategories: d.Subcategories, Subtypes: d.Subtypes})
	}
	return out
}

// Users returns user IDs in load order.
func (c *Catalog) Users() []int64 {
	return append([]int64(nil), c.userOrder...)
}

// ReviewsFor returns every review of a destination.
func (c *Catalog) ReviewsFor(id int64) []Review {
	return c.reviewsByID[id]
}

// Loved is a destination ranked by likes.
type Loved struct {
	Destination   *Destination `json:"destination"`
	AverageRating *float64     `json:"average_rating"`
	ReviewCount   int          `json:"review_count"`
}

// MostLoved returns the limit most liked destinations with their average rating.
// Equal like counts keep snapshot order. A non-positive limit means 10.
func (c *Catalog) MostLoved(limit int) []Loved {
	if limit <= 0 {
		limit = 10
	}

	order := make([]int, len(c.destinations))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.destinations[order[a]].LikeCount > c.destinations[order[b]].LikeCount
	})
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]Loved, 0, len(order))
	for _, idx := range order {
		d := &c.destinations[idx]
		reviews := c.reviewsByID[d.ID]
		item := Loved{Destination: d, ReviewCount: len(reviews)}
		if len(reviews) > 0 {
			sum := 0
			for _, r := range reviews {
				sum += r.Rating
			}
			avg := float64(sum) / float64(len(reviews))
			item.AverageRating = &avg
		}
		out = append(out, item)
	}
	return out
}

// ByPopularity returns all destinations ordered by like count, most liked first.
func (c *Catalog) ByPopularity() []*Destination {
	out := make([]*Destination, len(c.destinations))
	for i := range c.destinations {
		out[i] = &c.destinations[i]
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].LikeCount > out[b].LikeCount
	})
	return out
}
