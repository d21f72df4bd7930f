/*
Package app assembles a tripsense service from configuration.

An App owns every cache and backend it creates. Nothing in tripsense keeps
package-level mutable state besides metrics and the global logger, so two
Apps built from different configs do not share results.
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/config"
	"github.com/khanglvm/tripsense/internal/embedding"
	"github.com/khanglvm/tripsense/internal/history"
	"github.com/khanglvm/tripsense/internal/meaning"
	"github.com/khanglvm/tripsense/internal/recommend"
	"github.com/khanglvm/tripsense/internal/remote"
	"github.com/khanglvm/tripsense/internal/review"
	"github.com/khanglvm/tripsense/internal/search"
	"github.com/khanglvm/tripsense/internal/sentiment"
	"github.com/khanglvm/tripsense/internal/similarity"
	"github.com/khanglvm/tripsense/internal/storage"
	"github.com/khanglvm/tripsense/internal/text"
)

// Result list bounds applied by the search surfaces.
const (
	DefaultLimit = 20
	MinLimit     = 5
	MaxLimit     = 200
)

// ErrNoData is returned by Open when no destination snapshot is configured.
var ErrNoData = errors.New("no destination data configured (set data.destinations or pass --data)")

// App is a fully wired tripsense service.
type App struct {
	Config     *config.Config
	Catalog    *catalog.Catalog
	Normalizer *text.Normalizer
	Engine     *search.Engine
	Analyzer   *review.Analyzer
	Blender    *recommend.Blender

	store   *storage.SQLiteStorage
	tracker *history.Tracker
	logger  zerolog.Logger
}

// Open loads the catalog named by cfg.Data and builds an App around it.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg.Data.Destinations == "" {
		return nil, ErrNoData
	}
	cat, err := catalog.Load(cfg.Data.Destinations, cfg.Data.Activity)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, cat, logger)
}

// New builds an App over cat. Remote backends are probed here, once; a
// backend that does not answer is replaced by its local fallback.
func New(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, logger zerolog.Logger) (*App, error) {
	logger = logger.With().Str("component", "app").Logger()

	normalizer, err := text.New(
		text.WithStopwordsFile(cfg.NLP.StopwordsFile),
		text.WithTokenizer(cfg.NLP.Tokenizer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build normalizer: %w", err)
	}

	a := &App{
		Config:     cfg,
		Catalog:    cat,
		Normalizer: normalizer,
		store:      storage.Disabled(),
		logger:     logger,
	}

	if cfg.Storage.Enabled {
		a.store = storage.NewStorage(cfg.Storage.Path, logger)
		if err := a.store.Init(); err != nil {
			logger.Warn().Err(err).Msg("storage unavailable, history and vector persistence disabled")
		}
	}

	breaker := remote.BreakerConfig{
		FailureThreshold: cfg.NLP.Breaker.FailureThreshold,
		OpenTimeout:      cfg.NLP.Breaker.OpenTimeout,
	}

	model, err := a.embeddingModel(breaker)
	if err != nil {
		return nil, err
	}
	backend := similarity.Resolve(ctx, model, normalizer, logger)

	var recorder search.Recorder
	if a.store.Enabled() {
		a.tracker = history.NewTracker(a.store, logger)
		recorder = a.tracker
	}

	a.Engine = search.NewEngine(backend, normalizer, search.Config{
		CacheSize:          cfg.Search.CacheSize,
		Workers:            cfg.Search.Workers,
		PrefilterMin:       cfg.Search.PrefilterMin,
		ShortQueryMinScore: cfg.Search.ShortQueryMinScore,
		Seed:               cfg.Recommend.Seed,
	}, recorder, logger)

	var parser meaning.Parser
	if cfg.NLP.Parser.Endpoint != "" {
		parser = meaning.NewHTTPParser(remote.NewClient("parser", cfg.NLP.Parser.Endpoint, cfg.NLP.Parser.Timeout, breaker, logger))
	}
	extractor := meaning.NewExtractor(parser, logger)

	a.Analyzer = review.NewAnalyzer(a.classifier(breaker), extractor, normalizer, logger)
	a.Blender = recommend.NewBlender(a.Engine, a.Analyzer, cfg.Recommend.Seed, logger)

	logger.Debug().
		Int("destinations", cat.Len()).
		Str("similarity", backend.Name()).
		Bool("storage", a.store.Enabled()).
		Bool("parser", extractor.Available()).
		Msg("app ready")

	return a, nil
}

func (a *App) embeddingModel(breaker remote.BreakerConfig) (*embedding.Model, error) {
	ec := a.Config.NLP.Embedding

	var provider embedding.Provider
	switch ec.Provider {
	case "", "none":
		return nil, nil
	case "hash":
		provider = embedding.NewHashProvider(ec.Dimensions, a.Normalizer)
	case "http":
		client := remote.NewClient("embedding", ec.Endpoint, ec.Timeout, breaker, a.logger)
		provider = embedding.NewHTTPProvider(client, ec.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	var vectors embedding.VectorStore
	if a.store.Enabled() {
		vectors = a.store
	}
	return embedding.NewModel(provider, ec.CacheSize, vectors, a.logger), nil
}

func (a *App) classifier(breaker remote.BreakerConfig) sentiment.Classifier {
	sc := a.Config.NLP.Sentiment

	var inner sentiment.Classifier
	if sc.Provider == "http" {
		client := remote.NewClient("sentiment", sc.Endpoint, sc.Timeout, breaker, a.logger)
		inner = sentiment.NewModelBackend(sentiment.HTTPLoader(client), a.logger)
	} else {
		inner = sentiment.NewLexicon()
	}
	return sentiment.NewCached(inner, sc.CacheSize)
}

// ClampLimit maps a requested result count onto [MinLimit, MaxLimit];
// zero or negative selects DefaultLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(max(limit, MinLimit), MaxLimit)
}

// Search ranks the catalog against query. retry drops any cached result
// for the same query and limit first.
func (a *App) Search(ctx context.Context, query string, limit int, retry bool) ([]search.Result, error) {
	if retry && a.Engine.Invalidate(query, limit) {
		a.logger.Debug().Str("query", query).Int("limit", limit).Msg("cached results invalidated")
	}
	return a.Engine.Search(ctx, query, a.Catalog.All(), limit)
}

// Analyze extracts sentiment and keywords from one review.
func (a *App) Analyze(ctx context.Context, content string, rating *float64) (review.Analysis, error) {
	if err := review.CheckText(content); err != nil {
		return review.Analysis{}, err
	}
	return a.Analyzer.Analyze(ctx, content, rating), nil
}

// Recommend builds a bundle for userID. userID 0 is an anonymous visitor
// with no activity. Use Catalog.Viewed to turn destination IDs into
// recentlyViewed items.
func (a *App) Recommend(ctx context.Context, userID int64, limit int, recentlyViewed []catalog.Viewed) (*recommend.Bundle, error) {
	var activity *catalog.UserActivity
	if userID != 0 {
		u, err := a.Catalog.User(userID)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", userID, err)
		}
		activity = u
	}
	return a.Blender.Recommend(ctx, a.Catalog, recommend.Request{
		Activity:       activity,
		Limit:          limit,
		RecentlyViewed: recentlyViewed,
	})
}

// StorageEnabled reports whether search history is persisted.
func (a *App) StorageEnabled() bool {
	return a.store.Enabled()
}

// History returns persisted searches newer than since, most recent first.
func (a *App) History(since time.Time, limit int) ([]storage.SearchRecord, error) {
	return a.store.SearchHistory(since, limit)
}

// Prune deletes history older than the configured retention.
func (a *App) Prune() error {
	return a.store.Cleanup(a.Config.Storage.Retention)
}

// Close flushes pending history and closes storage.
func (a *App) Close() error {
	if a.tracker != nil {
		a.tracker.Stop()
	}
	return a.store.Close()
}

// ParseIDs parses a comma-separated list of destination IDs. Blank input
// yields nil.
func ParseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid destination id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
