/*
Package similarity scores how close two texts are.

Two backends implement Backend: Lexical (Jaccard overlap of content tokens)
and Embedding (cosine of embedding vectors). Both amplify scores for short
queries, since a one- or two-word query can never overlap much with a long
destination description. Resolve picks the backend once at startup.
*/
package similarity

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/embedding"
	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/text"
)

// shortQueryWords is the whitespace word count below which a query is short.
const shortQueryWords = 3

// Backend scores text similarity in [0, 1]. Implementations never fail.
type Backend interface {
	Similarity(ctx context.Context, a, b string) float64
	Name() string
}

// IsShortQuery reports whether s has fewer than three whitespace-separated words.
func IsShortQuery(s string) bool {
	return len(strings.Fields(s)) < shortQueryWords
}

// Lexical scores the Jaccard overlap of the two texts' content token sets.
type Lexical struct {
	normalizer *text.Normalizer
}

// NewLexical creates a lexical backend.
func NewLexical(normalizer *text.Normalizer) *Lexical {
	return &Lexical{normalizer: normalizer}
}

// Name implements Backend.
func (l *Lexical) Name() string { return "lexical" }

// Similarity implements Backend. Either side without content tokens scores 0.
// Short first arguments scoring at least 0.2 are boosted by 1.5, capped at 0.8.
func (l *Lexical) Similarity(_ context.Context, a, b string) float64 {
	setA := l.normalizer.TokenSet(a)
	setB := l.normalizer.TokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	sim := float64(intersection) / float64(union)

	if IsShortQuery(a) && sim >= 0.2 {
		sim = math.Min(sim*1.5, 0.8)
	}
	return sim
}

// Embedding scores cosine similarity of embedding vectors, falling back to a
// lexical score whenever a vector cannot be produced.
type Embedding struct {
	model    *embedding.Model
	fallback *Lexical
	logger   zerolog.Logger
}

// NewEmbedding creates an embedding backend that degrades to fallback.
func NewEmbedding(model *embedding.Model, fallback *Lexical, logger zerolog.Logger) *Embedding {
	return &Embedding{
		model:    model,
		fallback: fallback,
		logger:   logger.With().Str("component", "similarity").Logger(),
	}
}

// Name implements Backend.
func (e *Embedding) Name() string { return "embedding" }

// Similarity implements Backend. Short first arguments are amplified: scores
// of at least 0.2 by 1.5 (capped at 0.85), scores in [0.1, 0.2) by 1.3.
func (e *Embedding) Similarity(ctx context.Context, a, b string) float64 {
	va, err := e.model.Embed(ctx, a)
	if err == nil {
		var vb []float32
		vb, err = e.model.Embed(ctx, b)
		if err == nil {
			return amplifyEmbedding(a, embedding.CosineSimilarity(va, vb))
		}
	}

	metrics.RecordDegradation("similarity", "backend_error")
	e.logger.Debug().Err(err).Msg("embedding similarity failed, using lexical score")
	return e.fallback.Similarity(ctx, a, b)
}

func amplifyEmbedding(query string, sim float64) float64 {
	if !IsShortQuery(query) {
		return sim
	}
	switch {
	case sim >= 0.2:
		return math.Min(sim*1.5, 0.85)
	case sim >= 0.1:
		return sim * 1.3
	default:
		return sim
	}
}

// Resolve returns the embedding backend when model is non-nil and answers a
// probe, otherwise the lexical backend. It is meant to run once at startup.
func Resolve(ctx context.Context, model *embedding.Model, normalizer *text.Normalizer, logger zerolog.Logger) Backend {
	lexical := NewLexical(normalizer)
	if model == nil {
		logger.Info().Str("backend", "lexical").Msg("similarity backend selected")
		return lexical
	}

	if err := model.Probe(ctx); err != nil {
		metrics.RecordDegradation("similarity", "unavailable")
		logger.Warn().Err(err).Str("backend", "lexical").Msg("embedding model unavailable, similarity backend selected")
		return lexical
	}

	logger.Info().Str("backend", "embedding").Str("model", model.Version()).Msg("similarity backend selected")
	return NewEmbedding(model, lexical, logger)
}
