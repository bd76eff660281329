// Package app is the composition root shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/config"
	dbRedis "github.com/kailas-cloud/manualrag/internal/db/redis"
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/index"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/repository/catalog"
	"github.com/kailas-cloud/manualrag/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/manualrag/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/manualrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/manualrag/internal/usecase/embedding"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/manualrag/internal/usecase/search"
)

// queryEmbedder is the outer link of an embedder chain.
type queryEmbedder interface {
	domain.Embedder
	domain.HealthChecker
}

// App holds the wired components. Build it once, Close it on shutdown.
type App struct {
	Config   config.Config
	Manuals  *searchuc.Multi
	Evidence *evidence.Builder
	Health   *healthuc.Service

	cache  *dbRedis.Store
	logger *zap.Logger
}

// Build wires the application from a validated config.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	a := &App{Config: cfg, logger: logger}
	a.cache = connectCache(ctx, cfg.Cache, logger)

	engine, text, image, err := a.buildEngine(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	products, err := catalog.New(catalogPath(cfg.Manuals), cfg.Manuals.Root, logger).Load()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	weights := defaultWeights(cfg.Search)
	a.Manuals, err = searchuc.LoadMulti(products, searchuc.OpenWith(engine, weights), engine, logger,
		searchuc.WithDefaultWeights(weights),
		searchuc.WithRelevanceThreshold(cfg.Search.RelevanceThreshold),
		searchuc.WithParallelism(cfg.Manuals.Parallelism),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load manuals: %w", err)
	}

	a.Evidence = evidence.NewBuilder(cfg.Manuals.ImagesURLPrefix)

	// Nil interfaces, not typed nil pointers, for absent components.
	deps := healthuc.Deps{Manuals: a.Manuals, Mode: engine.Mode()}
	if text != nil {
		deps.TextEmbedding = text
	}
	if image != nil {
		deps.ImageEmbedding = image
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	a.Health = healthuc.New(deps)

	return a, nil
}

// Mode returns the retrieval strategy the manuals were loaded with.
func (a *App) Mode() result.Mode { return a.Manuals.Mode() }

// Handler builds the HTTP API.
func (a *App) Handler() http.Handler {
	server := chiTransport.NewServer(
		a.Manuals, a.Evidence, a.Health,
		chiTransport.Limits{DefaultTopK: a.Config.Search.DefaultTopK, MaxTopK: a.Config.Search.MaxTopK},
		a.Manuals.Weights(),
		a.logger,
	)
	return chiTransport.NewRouter(server, a.Config.Auth.APIKeys, a.logger)
}

// Close releases the manuals' indexes and the cache connection.
func (a *App) Close() {
	if a.Manuals != nil {
		if err := a.Manuals.Close(); err != nil {
			a.logger.Warn("Failed to close manual indexes", zap.Error(err))
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

// buildEngine selects the retrieval strategy. A backend that cannot run in this
// process degrades to substring search instead of failing startup.
func (a *App) buildEngine(cfg config.Config) (searchuc.Engine, queryEmbedder, queryEmbedder, error) {
	backend, err := index.SelectBackend(cfg.Search.Backend)
	if err != nil {
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			return nil, nil, nil, err
		}
		a.logger.Warn("Similarity backend unavailable, using substring search",
			zap.String("backend", cfg.Search.Backend),
			zap.Error(err),
		)
		return searchuc.NewSubstringEngine(), nil, nil, nil
	}

	text, err := a.buildEmbedder(config.VectorizerText, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	image, err := a.buildEmbedder(config.VectorizerImage, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	a.logger.Info("Vector search enabled",
		zap.String("backend", backend.Name()),
		zap.String("text_model", cfg.Embedding.Vectorizers[config.VectorizerText].Model),
		zap.String("image_model", cfg.Embedding.Vectorizers[config.VectorizerImage].Model),
	)
	return searchuc.NewVectorEngine(text, image, backend), text, image, nil
}

// buildEmbedder composes openai → cache → instrumented → instruction.
func (a *App) buildEmbedder(name string, cfg config.Config) (queryEmbedder, error) {
	vc, ok := cfg.Embedding.Vectorizers[name]
	if !ok {
		return nil, fmt.Errorf("embedding vectorizer %q is not configured", name)
	}
	prov, ok := cfg.Embedding.Providers[vc.Provider]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q is not configured", vc.Provider)
	}

	var embedder queryEmbedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:         prov.APIKey,
		BaseURL:        prov.BaseURL,
		Model:          vc.Model,
		Dimensions:     vc.Dimensions,
		SendDimensions: vc.SendDimensions,
		Vectorizer:     name,
		Logger:         a.logger,
	})

	if a.cache != nil {
		embedder = embcache.New(embedder, a.cache, embcache.Config{
			KeyPrefix: cfg.Cache.KeyPrefix,
			Namespace: vc.Model,
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal.MustCurryWith(prometheus.Labels{"vectorizer": name}), a.logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, name, vc.Model, a.logger)

	if vc.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, vc.QueryInstruction)
	}
	return embedder, nil
}

// connectCache returns nil when the cache is disabled or unreachable; search
// then runs uncached.
func connectCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) *dbRedis.Store {
	if !cfg.Enabled() {
		return nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Embedding cache disabled", zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		logger.Warn("Embedding cache not ready, disabled", zap.Strings("addrs", cfg.Addrs), zap.Error(err))
		return nil
	}
	logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Addrs))
	return store
}

func catalogPath(cfg config.ManualsConfig) string {
	if cfg.Root == "" || filepath.IsAbs(cfg.Catalog) {
		return cfg.Catalog
	}
	return filepath.Join(cfg.Root, cfg.Catalog)
}

func defaultWeights(cfg config.SearchConfig) result.Weights {
	return result.Weights{Text: cfg.Weights.Text, Tables: cfg.Weights.Tables, Images: cfg.Weights.Images}
}
