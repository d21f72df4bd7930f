package catalog

import (
	"errors"
	"sort"
	"strings"
)

// ErrTagNotFound is returned when no tag matches even partially.
var ErrTagNotFound = errors.New("tag not found")

// TagLimit caps the destinations returned by ByTag.
const TagLimit = 20

// Tags returns the distinct first subcategories, sorted.
func (c *Catalog) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for i := range c.destinations {
		tag := c.destinations[i].FirstSubcategory()
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ResolveTag maps user input onto a known tag, trying in order: exact match,
// case-insensitive match, "&"/"and" equivalence, then partial containment.
func (c *Catalog) ResolveTag(input string) (string, error) {
	tags := c.Tags()
	lower := strings.ToLower(input)

	for _, t := range tags {
		if t == input {
			return t, nil
		}
	}
	for _, t := range tags {
		if strings.ToLower(t) == lower {
			return t, nil
		}
	}
	for _, t := range tags {
		if strings.ToLower(strings.ReplaceAll(t, "&", "and")) == lower ||
			strings.ToLower(strings.ReplaceAll(input, "and", "&")) == strings.ToLower(t) {
			return t, nil
		}
	}
	for _, t := range tags {
		lt := strings.ToLower(t)
		if strings.Contains(lt, lower) || strings.Contains(lower, lt) {
			return t, nil
		}
	}
	return "", ErrTagNotFound
}

// ByTag returns up to TagLimit destinations whose first subcategory is the
// resolved tag, and the tag it resolved to.
func (c *Catalog) ByTag(input string) ([]*Destination, string, error) {
	tag, err := c.ResolveTag(input)
	if err != nil {
		return nil, "", err
	}

	out := []*Destination{}
	for i := range c.destinations {
		if c.destinations[i].FirstSubcategory() == tag {
			out = append(out, &c.destinations[i])
			if len(out) == TagLimit {
				break
			}
		}
	}
	return out, tag, nil
}
