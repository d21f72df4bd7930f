package meaning

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/remote"
)

// Parser produces a dependency parse for text.
type Parser interface {
	Parse(ctx context.Context, text string) (*Doc, error)
}

// Units are the meaning units found in a text.
type Units struct {
	Phrases          []string `json:"phrases"`
	AdjNounPairs     []string `json:"adj_noun_pairs"`
	NegationConcepts []string `json:"negation_concepts"`
	Entities         []Entity `json:"entities"`
}

// EmptyUnits returns Units with every list empty and non-nil.
func EmptyUnits() Units {
	return Units{
		Phrases:          []string{},
		AdjNounPairs:     []string{},
		NegationConcepts: []string{},
		Entities:         []Entity{},
	}
}

var (
	implicitNegations = map[string]bool{"nothing": true, "nobody": true, "nowhere": true, "none": true}
	contrastWords     = map[string]bool{"but": true, "however": true, "yet": true, "although": true}
	emptinessLemmas   = map[string]bool{"nothing": true, "none": true, "empty": true, "no": true}
	negatedObjectDeps = map[string]bool{"dobj": true, "attr": true, "pobj": true}
)

// Extractor turns parsed documents into meaning units.
type Extractor struct {
	parser Parser
	logger zerolog.Logger
}

// NewExtractor creates an extractor. A nil parser makes Extract return empty units.
func NewExtractor(parser Parser, logger zerolog.Logger) *Extractor {
	return &Extractor{
		parser: parser,
		logger: logger.With().Str("component", "meaning").Logger(),
	}
}

// Available reports whether a parser is configured.
func (e *Extractor) Available() bool {
	return e != nil && e.parser != nil
}

// Extract parses text and returns its meaning units. It never fails.
func (e *Extractor) Extract(ctx context.Context, text string) (units Units) {
	if !e.Available() || text == "" {
		return EmptyUnits()
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDegradation("meaning", "panic")
			e.logger.Error().Interface("panic", r).Msg("meaning extraction panicked")
			units = EmptyUnits()
		}
	}()

	doc, err := e.parser.Parse(ctx, text)
	if err != nil || doc == nil {
		metrics.RecordDegradation("meaning", "backend_error")
		e.logger.Warn().Err(err).Msg("parse failed, returning empty meaning units")
		return EmptyUnits()
	}

	return FromDoc(doc)
}

// FromDoc derives meaning units from an already parsed document.
func FromDoc(doc *Doc) Units {
	units := EmptyUnits()

	for _, chunk := range doc.NounChunks {
		units.Phrases = append(units.Phrases, strings.ToLower(chunk))
	}

	for i, tok := range doc.Tokens {
		if tok.POS != "NOUN" && tok.POS != "PROPN" {
			continue
		}
		for _, c := range doc.children(i) {
			if doc.Tokens[c].POS == "ADJ" {
				units.AdjNounPairs = append(units.AdjNounPairs, doc.lower(c)+"_"+doc.lower(i))
			}
		}
	}

	for i, tok := range doc.Tokens {
		if tok.Dep == "neg" {
			h := doc.head(i)
			if pos := doc.Tokens[h].POS; pos == "ADJ" || pos == "VERB" {
				concept := "not_" + doc.lower(h)
				for _, c := range doc.children(h) {
					child := doc.Tokens[c]
					if negatedObjectDeps[child.Dep] && child.POS == "NOUN" {
						concept = fmt.Sprintf("not_%s_%s", doc.lower(h), doc.lower(c))
						break
					}
				}
				units.NegationConcepts = append(units.NegationConcepts, concept)
			}
		}

		if implicitNegations[doc.lemma(i)] {
			for j, other := range doc.Tokens {
				related := doc.head(j) == i || doc.head(i) == j
				if related && (other.POS == "ADJ" || other.POS == "VERB") {
					units.NegationConcepts = append(units.NegationConcepts, "no_"+doc.lower(j))
				}
			}
		}
	}

	units.Entities = append(units.Entities, doc.Entities...)

	// "large but nothing in it": an adjective followed by a contrast word and
	// an emptiness word inverts into empty_<adjective>.
	n := len(doc.Tokens)
	for i, tok := range doc.Tokens {
		if i >= n-3 || tok.POS != "ADJ" {
			continue
		}
		if !anyInWindow(doc, i+1, i+2, func(j int) bool { return contrastWords[doc.lower(j)] }) {
			continue
		}
		if anyInWindow(doc, i+2, i+4, func(j int) bool { return emptinessLemmas[doc.lemma(j)] }) {
			units.NegationConcepts = append(units.NegationConcepts, "empty_"+doc.lower(i))
		}
	}

	return units
}

// anyInWindow reports whether match holds for any in-range index in [from, to].
func anyInWindow(doc *Doc, from, to int, match func(int) bool) bool {
	for j := from; j <= to && j < len(doc.Tokens); j++ {
		if match(j) {
			return true
		}
	}
	return false
}

// HTTPParser requests parses from a service that accepts {"text": ...} and
// answers with a Doc.
type HTTPParser struct {
	client *remote.Client
}

// NewHTTPParser creates a parser client.
func NewHTTPParser(client *remote.Client) *HTTPParser {
	return &HTTPParser{client: client}
}

// Parse implements Parser.
func (p *HTTPParser) Parse(ctx context.Context, text string) (*Doc, error) {
	var doc Doc
	if err := p.client.PostJSON(ctx, map[string]string{"text": text}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
