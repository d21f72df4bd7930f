/*
Package sentiment classifies text as POSITIVE, NEGATIVE or NEUTRAL.

Lexicon counts positive and negative cue words. ModelBackend consults an
optional text-classification model, loaded lazily exactly once, and keeps a
lexicon fast path for very short texts. Cached memoizes either backend in a
bounded LRU. Classification never fails: any error degrades to NEUTRAL 0.5.
*/
package sentiment

import (
	"context"
	"strings"

	"github.com/khanglvm/tripsense/internal/cache"
)

// Label is a sentiment class.
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
)

// Result is a label with a confidence in [0, 1].
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NeutralResult is returned whenever no better answer is available.
var NeutralResult = Result{Label: Neutral, Confidence: 0.5}

// Classifier assigns a sentiment to text.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// ParseLabel maps model label spellings onto Label.
func ParseLabel(s string) (Label, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POSITIVE", "POS", "LABEL_1":
		return Positive, true
	case "NEGATIVE", "NEG", "LABEL_0":
		return Negative, true
	case "NEUTRAL", "NEU":
		return Neutral, true
	default:
		return "", false
	}
}

var (
	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "happy", "love", "enjoy", "fun", "beautiful"}
	negativeWords = []string{"bad", "terrible", "awful", "horrible", "sad", "hate", "dislike", "boring", "ugly", "disappointed"}
)

// Lexicon classifies by counting cue words contained anywhere in the text.
// Matching is by substring, so "fun" also counts inside "funny".
type Lexicon struct {
	positive []string
	negative []string
}

// NewLexicon returns the default ten-word-per-side lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{positive: positiveWords, negative: negativeWords}
}

// newShortTextLexicon adds cleanliness cues used for texts under five words.
func newShortTextLexicon() *Lexicon {
	return &Lexicon{
		positive: append(append([]string{}, positiveWords...), "clean"),
		negative: append(append([]string{}, negativeWords...), "dirty"),
	}
}

// Counts returns how many positive and negative cue words occur in text.
func (l *Lexicon) Counts(text string) (positive, negative int) {
	lower := strings.ToLower(text)
	for _, w := range l.positive {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range l.negative {
		if strings.Contains(lower, w) {
			negative++
		}
	}
	return positive, negative
}

// decide returns the lexicon verdict and whether the counts were decisive.
func (l *Lexicon) decide(text string) (Result, bool) {
	pos, neg := l.Counts(text)
	switch {
	case pos > neg:
		return Result{Label: Positive, Confidence: 0.8}, true
	case neg > pos:
		return Result{Label: Negative, Confidence: 0.8}, true
	default:
		return NeutralResult, false
	}
}

// Classify implements Classifier.
func (l *Lexicon) Classify(_ context.Context, text string) Result {
	res, _ := l.decide(text)
	return res
}

// Cached memoizes a classifier by exact text.
type Cached struct {
	inner Classifier
	cache *cache.LRU[string, Result]
}

// NewCached wraps inner with an LRU of the given capacity.
func NewCached(inner Classifier, capacity int) *Cached {
	return &Cached{inner: inner, cache: cache.New[string, Result]("sentiment", capacity)}
}

// Classify implements Classifier.
func (c *Cached) Classify(ctx context.Context, text string) Result {
	if res, ok := c.cache.Get(text); ok {
		return res
	}
	res := c.inner.Classify(ctx, text)
	c.cache.Put(text, res)
	return res
}

// Stats returns cache counters.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}
