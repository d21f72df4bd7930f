/*
Package review derives sentiment and keyword buckets from review text.

Keywords are split into positive and negative buckets: words inside a short
window after a negation cue are always negative, the rest follow the overall
sentiment. Meaning units from the optional parser are merged in when present.
*/
package review

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/meaning"
	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/sentiment"
	"github.com/khanglvm/tripsense/internal/text"
)

// ErrEmptyText is returned by CheckText for blank review content.
var ErrEmptyText = errors.New("review text is empty")

const (
	// TopKeywords is the number of keywords kept per bucket.
	TopKeywords = 5

	// negationWindow is how many words after a negation cue are inspected.
	negationWindow = 3
)

var negationWords = map[string]bool{
	"no": true, "not": true, "never": true, "nothing": true, "nowhere": true,
	"none": true, "neither": true, "nor": true, "barely": true, "hardly": true,
	"rarely": true, "seldom": true, "lack": true, "missing": true, "empty": true,
}

// IsNegation reports whether word is a negation cue.
func IsNegation(word string) bool {
	return negationWords[word] || strings.HasSuffix(word, "n't")
}

// MeaningUnits is the parser-derived part of an analysis.
type MeaningUnits struct {
	Phrases          []string         `json:"phrases"`
	AdjNounPairs     []string         `json:"adj_noun_pairs"`
	NegationConcepts []string         `json:"negation_concepts"`
	PositiveUnits    []string         `json:"positive_units"`
	NegativeUnits    []string         `json:"negative_units"`
	Entities         []meaning.Entity `json:"entities,omitempty"`
}

func emptyMeaningUnits() MeaningUnits {
	return MeaningUnits{
		Phrases:          []string{},
		AdjNounPairs:     []string{},
		NegationConcepts: []string{},
		PositiveUnits:    []string{},
		NegativeUnits:    []string{},
	}
}

// Analysis is the result of analyzing one review.
type Analysis struct {
	Sentiment        sentiment.Label `json:"sentiment"`
	Confidence       float64         `json:"sentiment_score"`
	PositiveKeywords []string        `json:"positive_keywords"`
	NegativeKeywords []string        `json:"negative_keywords"`
	MeaningUnits     MeaningUnits    `json:"meaning_units"`
}

// Keywords converts the analysis to the payload stored on a review record.
func (a Analysis) Keywords() (catalog.ReviewKeywords, error) {
	units, err := json.Marshal(a.MeaningUnits)
	if err != nil {
		return catalog.ReviewKeywords{}, err
	}
	return catalog.ReviewKeywords{
		Positive:     a.PositiveKeywords,
		Negative:     a.NegativeKeywords,
		MeaningUnits: units,
	}, nil
}

// Analyzer combines a sentiment classifier with keyword and meaning extraction.
type Analyzer struct {
	classifier sentiment.Classifier
	extractor  *meaning.Extractor
	normalizer *text.Normalizer
	logger     zerolog.Logger
}

// NewAnalyzer creates an analyzer. extractor may be nil.
func NewAnalyzer(classifier sentiment.Classifier, extractor *meaning.Extractor, normalizer *text.Normalizer, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		extractor:  extractor,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "review").Logger(),
	}
}

// CheckText returns ErrEmptyText when content has no non-space characters.
func CheckText(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyText
	}
	return nil
}

// Analyze classifies content and extracts its keyword buckets. A rating of 4
// or more forces POSITIVE and 2 or less forces NEGATIVE; the confidence is
// always the classifier's. Analyze never fails: extraction errors leave the
// keyword buckets empty.
func (a *Analyzer) Analyze(ctx context.Context, content string, rating *float64) Analysis {
	res := a.classifier.Classify(ctx, content)
	label := res.Label
	if rating != nil {
		switch {
		case *rating >= 4:
			label = sentiment.Positive
		case *rating <= 2:
			label = sentiment.Negative
		}
	}

	pos, neg, units := a.extract(ctx, content, label)
	return Analysis{
		Sentiment:        label,
		Confidence:       res.Confidence,
		PositiveKeywords: pos,
		NegativeKeywords: neg,
		MeaningUnits:     units,
	}
}

func (a *Analyzer) extract(ctx context.Context, content string, label sentiment.Label) (pos, neg []string, units MeaningUnits) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDegradation("review", "panic")
			a.logger.Error().Interface("panic", r).Msg("keyword extraction panicked")
			pos, neg, units = []string{}, []string{}, emptyMeaningUnits()
		}
	}()

	tokens := a.normalizer.Normalize(content, true)
	contentTokens := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		contentTokens[t] = true
	}

	var negative []string
	words := strings.Fields(strings.ToLower(content))
	for i, w := range words {
		if !IsNegation(trimPunct(w)) {
			continue
		}
		for j := i + 1; j < min(i+1+negationWindow, len(words)); j++ {
			next := trimPunct(words[j])
			if contentTokens[next] && !negationWords[next] {
				negative = append(negative, next)
			}
		}
	}

	negated := make(map[string]bool, len(negative))
	for _, w := range negative {
		negated[w] = true
	}
	var positive []string
	for _, t := range tokens {
		switch {
		case negated[t]:
		case negationWords[t], label == sentiment.Negative:
			negative = append(negative, t)
		default:
			positive = append(positive, t)
		}
	}

	units = emptyMeaningUnits()
	extracted := a.extractor.Extract(ctx, content)
	units.Phrases = extracted.Phrases
	units.AdjNounPairs = extracted.AdjNounPairs
	units.NegationConcepts = extracted.NegationConcepts
	units.Entities = extracted.Entities
	for _, pair := range extracted.AdjNounPairs {
		if label == sentiment.Negative {
			units.NegativeUnits = append(units.NegativeUnits, pair)
		} else {
			units.PositiveUnits = append(units.PositiveUnits, pair)
		}
	}
	units.NegativeUnits = append(units.NegativeUnits, extracted.NegationConcepts...)
	for _, concept := range extracted.NegationConcepts {
		if !slices.Contains(negative, concept) {
			negative = append(negative, concept)
		}
	}

	return MostCommon(positive, TopKeywords), MostCommon(negative, TopKeywords), units
}

// MostCommon returns up to n distinct words ordered by frequency, ties
// broken by first occurrence.
func MostCommon(words []string, n int) []string {
	counts := make(map[string]int, len(words))
	order := make([]string, 0, len(words))
	for _, w := range words {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func trimPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
