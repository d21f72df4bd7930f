/*
Package catalog holds the destination snapshot every query runs against.

A Catalog is an immutable, in-memory view of destinations plus the users'
likes, reviews and selected tags. It is loaded from a JSON snapshot or a
TripAdvisor CSV export and answers the non-NLP queries: lookup by ID, most
loved, nearby and tag browsing.
*/
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Destination is a travel location.
type Destination struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	City          string   `json:"city,omitempty"`
	Country       string   `json:"country,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
	Subtypes      []string `json:"subtypes,omitempty"`
	LikeCount     int      `json:"likes_count"`
}

// FirstSubcategory returns the leading subcategory, which serves as the destination's tag.
func (d *Destination) FirstSubcategory() string {
	if len(d.Subcategories) == 0 {
		return ""
	}
	return d.Subcategories[0]
}

// Like records that a user liked a destination.
type Like struct {
	DestinationID int64     `json:"destination_id"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Review is a user's rated text review of a destination.
type Review struct {
	DestinationID int64          `json:"destination_id" validate:"required"`
	Content       string         `json:"content" validate:"required"`
	Rating        int            `json:"rating" validate:"min=1,max=5"`
	Sentiment     string         `json:"sentiment,omitempty"`
	Keywords      ReviewKeywords `json:"keywords"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
}

var validate = validator.New()

// Validate checks the rating is 1-5 and the content is not blank.
func (r *Review) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("invalid review for destination %d: content is required", r.DestinationID)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid review for destination %d: %w", r.DestinationID, err)
	}
	return nil
}

// ReviewKeywords are the keywords extracted when a review was analysed.
//
// Two stored shapes are accepted: an object with positive and negative
// lists, and an older flat list whose polarity is implied by the rating.
type ReviewKeywords struct {
	Positive []string `json:"positive_keywords"`
	Negative []string `json:"negative_keywords"`

	// Legacy holds keywords stored as a flat list.
	Legacy []string `json:"-"`

	// MeaningUnits is the extractor output stored alongside the keywords.
	MeaningUnits json.RawMessage `json:"meaning_units,omitempty"`
}

// Structured reports whether the keywords carry explicit polarity.
func (k ReviewKeywords) Structured() bool {
	return k.Legacy == nil
}

// UnmarshalJSON accepts both the object and the flat-list shape.
func (k *ReviewKeywords) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var flat []string
		if err := json.Unmarshal(data, &flat); err != nil {
			return fmt.Errorf("invalid keyword list: %w", err)
		}
		*k = ReviewKeywords{Legacy: flat}
		return nil
	}

	type plain ReviewKeywords
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid keyword object: %w", err)
	}
	*k = ReviewKeywords(p)
	return nil
}

// MarshalJSON writes legacy keywords back as a flat list.
func (k ReviewKeywords) MarshalJSON() ([]byte, error) {
	if !k.Structured() {
		return json.Marshal(k.Legacy)
	}
	type plain ReviewKeywords
	p := plain(k)
	if p.Positive == nil {
		p.Positive = []string{}
	}
	if p.Negative == nil {
		p.Negative = []string{}
	}
	return json.Marshal(p)
}

// Viewed is a destination the visitor has just looked at. Only the
// attributes used for similarity are needed, so it may describe a
// destination that is not in the loaded snapshot.
type Viewed struct {
	ID            int64    `json:"id"`
	Country       string   `json:"country"`
	Subcategories []string `json:"subcategories"`
	Subtypes      []string `json:"subtypes"`
}

// UserActivity is everything a user has done that informs recommendations.
type UserActivity struct {
	UserID         int64    `json:"id"`
	Username       string   `json:"username,omitempty"`
	SelectedTags   []string `json:"selected_tags"`
	Likes          []Like   `json:"likes"`
	Reviews        []Review `json:"reviews"`
	RecentlyViewed []int64  `json:"recently_viewed,omitempty"`
}

// ActivityCount is the number of likes plus reviews.
func (u *UserActivity) ActivityCount() int {
	if u == nil {
		return 0
	}
	return len(u.Likes) + len(u.Reviews)
}
