package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/remote"
)

// shortTextWords is the word count below which the lexicon is tried first.
const shortTextWords = 5

// Model predicts a sentiment for text.
type Model interface {
	Predict(ctx context.Context, text string) (Result, error)
}

// Loader initializes a Model. It is called at most once per ModelBackend.
type Loader func(ctx context.Context) (Model, error)

// ModelBackend classifies with a lazily loaded model.
//
// Texts under five words are first scored with an extended lexicon; the
// model is consulted only when that is a tie. If the model cannot be loaded
// at all, every call uses the plain lexicon instead.
type ModelBackend struct {
	load      Loader
	once      sync.Once
	model     Model
	loadErr   error
	shortText *Lexicon
	fallback  *Lexicon
	logger    zerolog.Logger
}

// NewModelBackend creates a backend that will call load on first use.
func NewModelBackend(load Loader, logger zerolog.Logger) *ModelBackend {
	return &ModelBackend{
		load:      load,
		shortText: newShortTextLexicon(),
		fallback:  NewLexicon(),
		logger:    logger.With().Str("component", "sentiment").Logger(),
	}
}

// ensureLoaded runs the loader once. The load is detached from the caller's
// cancellation so an abandoned first request cannot disable the model.
func (b *ModelBackend) ensureLoaded(ctx context.Context) error {
	b.once.Do(func() {
		if b.load == nil {
			b.loadErr = errors.New("no sentiment model loader configured")
		} else {
			b.model, b.loadErr = b.load(context.WithoutCancel(ctx))
		}
		if b.loadErr != nil {
			metrics.ModelLoads.WithLabelValues("sentiment", "failed").Inc()
			metrics.RecordDegradation("sentiment", "unavailable")
			b.logger.Warn().Err(b.loadErr).Msg("sentiment model unavailable, using lexicon")
			return
		}
		metrics.ModelLoads.WithLabelValues("sentiment", "ok").Inc()
		b.logger.Info().Msg("sentiment model loaded")
	})
	return b.loadErr
}

// Classify implements Classifier.
func (b *ModelBackend) Classify(ctx context.Context, text string) (res Result) {
	if err := b.ensureLoaded(ctx); err != nil {
		return b.fallback.Classify(ctx, text)
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDegradation("sentiment", "panic")
			b.logger.Error().Interface("panic", r).Msg("sentiment model panicked")
			res = NeutralResult
		}
	}()

	if len(strings.Fields(text)) < shortTextWords {
		if res, decisive := b.shortText.decide(text); decisive {
			return res
		}
	}

	res, err := b.model.Predict(ctx, text)
	if err != nil {
		metrics.RecordDegradation("sentiment", "backend_error")
		b.logger.Warn().Err(err).Msg("sentiment prediction failed")
		return NeutralResult
	}
	return res
}

// HTTPModel calls a text-classification endpoint that accepts {"inputs": text}
// and answers with [{"label","score"}] or [[{"label","score"}, ...]].
type HTTPModel struct {
	client *remote.Client
}

// NewHTTPModel creates a model client.
func NewHTTPModel(client *remote.Client) *HTTPModel {
	return &HTTPModel{client: client}
}

// HTTPLoader returns a Loader that probes the endpoint before handing out the model.
func HTTPLoader(client *remote.Client) Loader {
	return func(ctx context.Context) (Model, error) {
		m := NewHTTPModel(client)
		if _, err := m.Predict(ctx, "good"); err != nil {
			return nil, fmt.Errorf("sentiment model probe failed: %w", err)
		}
		return m, nil
	}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Predict implements Model.
func (m *HTTPModel) Predict(ctx context.Context, text string) (Result, error) {
	var raw json.RawMessage
	if err := m.client.PostJSON(ctx, map[string]string{"inputs": text}, &raw); err != nil {
		return Result{}, err
	}

	candidates, err := decodeCandidates(raw)
	if err != nil {
		return Result{}, err
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	label, ok := ParseLabel(best.Label)
	if !ok {
		return Result{}, fmt.Errorf("unknown sentiment label %q", best.Label)
	}
	return Result{Label: label, Confidence: best.Score}, nil
}

func decodeCandidates(raw json.RawMessage) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment response: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("empty sentiment response")
	}
	return flat, nil
}
