package manualrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/manualrag/internal/db/redis"
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/index"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/repository/catalog"
	"github.com/kailas-cloud/manualrag/internal/repository/embcache"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/manualrag/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, substituted in tests.
type searchUseCase interface {
	Mode() result.Mode
	Len() int
	Products() []Product
	Categories() []string
	Manual(product string) (searchuc.Manual, error)
	SearchAll(ctx context.Context, query string, topK int, w *result.Weights) (result.Multi, error)
	SearchByCategory(ctx context.Context, query, category string, topK int, w *result.Weights) (result.Multi, error)
	SearchProduct(ctx context.Context, product, query string, topK int, w *result.Weights) (result.Result, error)
	Close() error
}

type evidenceBuilder interface {
	Build(p Product, r result.Result) Evidence
	BuildMulti(r result.Multi) Evidence
}

// Client searches a set of loaded manuals in-process.
type Client struct {
	searchSvc searchUseCase
	evidence  evidenceBuilder
	healthSvc healthUseCase
	cache     *dbRedis.Store
	obs       *observer
}

// New loads the manuals and their indexes.
// The provided context is used for the cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{backend: index.BackendFlat}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalog == "" && len(cfg.products) == 0 {
		return nil, errors.New("manualrag: no manuals configured (use WithCatalog or WithManuals)")
	}
	if (cfg.textEmbedder == nil) != (cfg.imageEmbedder == nil) {
		return nil, errors.New("manualrag: both text and image embedders are required")
	}
	if cfg.cacheAddr != "" && cfg.cacheNamespace == "" {
		return nil, errors.New("manualrag: redis cache requires a namespace naming the embedding models")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	// Internal components log through zap; the SDK reports through slog only.
	logger := zap.NewNop()

	products := cfg.products
	if cfg.catalog != "" {
		loaded, err := catalog.New(cfg.catalog, cfg.root, logger).Load()
		if err != nil {
			return nil, fmt.Errorf("manualrag: %w", err)
		}
		products = append(loaded, products...)
	}

	c := &Client{evidence: evidence.NewBuilder(cfg.imagePrefix), obs: obs}
	if cfg.cacheAddr != "" && cfg.textEmbedder != nil {
		if c.cache, err = connectCache(ctx, cfg); err != nil {
			return nil, err
		}
	}

	engine, text, image, err := c.buildEngine(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	multiOpts := []searchuc.MultiOption{searchuc.WithParallelism(cfg.parallelism)}
	weights := result.DefaultWeights()
	if cfg.weights != nil {
		weights = *cfg.weights
	}
	multiOpts = append(multiOpts, searchuc.WithDefaultWeights(weights))
	if cfg.threshold > 0 {
		multiOpts = append(multiOpts, searchuc.WithRelevanceThreshold(cfg.threshold))
	}

	manuals, err := searchuc.LoadMulti(products, searchuc.OpenWith(engine, weights), engine, logger, multiOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("manualrag: %w", err)
	}
	c.searchSvc = manuals

	// Nil interfaces, not typed nil pointers, for absent components.
	deps := healthuc.Deps{Manuals: manuals, Mode: engine.Mode()}
	if text != nil {
		deps.TextEmbedding = text
		deps.ImageEmbedding = image
	}
	if c.cache != nil {
		deps.Cache = c.cache
	}
	c.healthSvc = healthuc.New(deps)

	return c, nil
}

func connectCache(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{cfg.cacheAddr},
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("manualrag: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("manualrag: cache not ready: %w", err)
	}
	return store, nil
}

// queryEmbedder is what the vector engine and the health check both need.
type queryEmbedder interface {
	domain.Embedder
	domain.HealthChecker
}

func (c *Client) buildEngine(cfg *clientConfig) (searchuc.Engine, queryEmbedder, queryEmbedder, error) {
	if cfg.textEmbedder == nil {
		return searchuc.NewSubstringEngine(), nil, nil, nil
	}

	backend, err := index.SelectBackend(cfg.backend)
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnavailable) {
			if c.obs.logger != nil {
				c.obs.logger.Warn("similarity backend unavailable, using substring search",
					"backend", cfg.backend, "error", err)
			}
			return searchuc.NewSubstringEngine(), nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("manualrag: %w", err)
	}

	text := c.wrapEmbedder(cfg, cfg.textEmbedder, "text")
	image := c.wrapEmbedder(cfg, cfg.imageEmbedder, "image")
	return searchuc.NewVectorEngine(text, image, backend), text, image, nil
}

func (c *Client) wrapEmbedder(cfg *clientConfig, e Embedder, vectorizer string) queryEmbedder {
	var out queryEmbedder = &embedderAdapter{inner: e}
	if c.cache == nil {
		return out
	}
	return embcache.New(out, c.cache, embcache.Config{
		KeyPrefix: "manualrag:",
		Namespace: cacheNamespace(cfg.cacheNamespace, vectorizer),
		TTL:       cfg.cacheTTL,
	}, metrics.EmbeddingCacheTotal.MustCurryWith(prometheus.Labels{"vectorizer": vectorizer}), zap.NewNop())
}

func cacheNamespace(models, vectorizer string) string {
	return models + ":" + vectorizer
}

// Close releases the manuals' indexes and the cache connection.
func (c *Client) Close() {
	if c.searchSvc != nil {
		_ = c.searchSvc.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
}

// Mode reports the retrieval strategy in use.
func (c *Client) Mode() Mode { return c.searchSvc.Mode() }

// Products lists the loaded products in catalog order.
func (c *Client) Products() []Product { return c.searchSvc.Products() }

// Categories lists the distinct categories of the loaded products, sorted.
func (c *Client) Categories() []string { return c.searchSvc.Categories() }
