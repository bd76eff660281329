package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/metrics"
)

// Multi-manual defaults.
const (
	DefaultMultiTopK          = 10
	DefaultCategoryTopK       = 5
	DefaultRelevanceThreshold = 0.1
	DefaultParallelism        = 8
)

// Search scopes, used as metric labels.
const (
	ScopeManual   = "manual"
	ScopeAll      = "all"
	ScopeCategory = "category"
)

// Manual is one loaded catalog entry.
type Manual struct {
	Product  manual.Product
	Searcher *Unified
}

// Opener builds the searcher of one catalog entry.
type Opener func(p manual.Product) (*Unified, error)

// OpenWith returns an Opener loading each manual's indexes from its PDF path.
func OpenWith(engine Engine, w result.Weights) Opener {
	return func(p manual.Product) (*Unified, error) {
		return OpenUnified(p.PDFPath, engine, w)
	}
}

// Multi fans a query out over every loaded manual and merges the results
// with product attribution.
type Multi struct {
	manuals   []Manual
	engine    Engine
	weights   result.Weights
	threshold float64
	parallel  int
	logger    *zap.Logger
}

// MultiOption configures a Multi searcher.
type MultiOption func(*Multi)

// WithDefaultWeights sets the weights used when a call does not override them.
func WithDefaultWeights(w result.Weights) MultiOption {
	return func(m *Multi) { m.weights = w }
}

// WithRelevanceThreshold sets the score a hit must exceed to count as relevant
// in the per-product summary.
func WithRelevanceThreshold(t float64) MultiOption {
	return func(m *Multi) { m.threshold = t }
}

// WithParallelism bounds the number of manuals searched concurrently.
func WithParallelism(n int) MultiOption {
	return func(m *Multi) {
		if n > 0 {
			m.parallel = n
		}
	}
}

// LoadMulti opens a searcher for every product. The engine must be the one the
// opener builds searchers with. A product that fails to load is logged and
// skipped; if none loads, ErrNoManuals is returned.
func LoadMulti(
	products []manual.Product, open Opener, engine Engine, logger *zap.Logger, opts ...MultiOption,
) (*Multi, error) {
	m := &Multi{
		engine:    engine,
		weights:   result.DefaultWeights(),
		threshold: DefaultRelevanceThreshold,
		parallel:  DefaultParallelism,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	seen := make(map[string]struct{}, len(products))
	slugs := make(map[string]string, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			logger.Error("Skipping catalog entry", zap.Error(err))
			metrics.ManualLoadFailuresTotal.Inc()
			continue
		}
		if _, dup := seen[p.Name]; dup {
			logger.Warn("Skipping duplicate product", zap.String("product", p.Name), zap.String("pdf_path", p.PDFPath))
			continue
		}
		slug := p.Slug()
		if slug == "" {
			logger.Error("Skipping product without a URL-safe name", zap.String("product", p.Name))
			metrics.ManualLoadFailuresTotal.Inc()
			continue
		}
		if owner, clash := slugs[slug]; clash {
			logger.Warn("Skipping product with colliding slug",
				zap.String("product", p.Name),
				zap.String("slug", slug),
				zap.String("loaded_product", owner),
			)
			metrics.ManualLoadFailuresTotal.Inc()
			continue
		}

		u, err := open(p)
		if err != nil {
			logger.Error("Failed to load manual searcher",
				zap.String("product", p.Name),
				zap.String("pdf_path", p.PDFPath),
				zap.Error(err),
			)
			metrics.ManualLoadFailuresTotal.Inc()
			continue
		}
		seen[p.Name] = struct{}{}
		slugs[slug] = p.Name
		m.manuals = append(m.manuals, Manual{Product: p, Searcher: u})
	}

	metrics.ManualsLoaded.Set(float64(len(m.manuals)))
	if len(m.manuals) == 0 {
		return nil, fmt.Errorf("%d catalog entries, none loaded: %w", len(products), domain.ErrNoManuals)
	}

	logger.Info("Loaded manual searchers",
		zap.Int("manuals", len(m.manuals)),
		zap.Int("catalog_entries", len(products)),
		zap.String("mode", string(engine.Mode())),
	)
	return m, nil
}

// Mode returns the retrieval strategy in use.
func (m *Multi) Mode() result.Mode { return m.engine.Mode() }

// Weights returns the default fusion weights.
func (m *Multi) Weights() result.Weights { return m.weights }

// Len returns the number of loaded manuals.
func (m *Multi) Len() int { return len(m.manuals) }

// Products lists the loaded products in catalog order.
func (m *Multi) Products() []manual.Product {
	out := make([]manual.Product, len(m.manuals))
	for i, mm := range m.manuals {
		out[i] = mm.Product
	}
	return out
}

// Categories lists the distinct categories of the loaded products, sorted.
func (m *Multi) Categories() []string {
	out := make([]string, 0, len(m.manuals))
	for _, mm := range m.manuals {
		out = append(out, mm.Product.Category)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Manual finds a loaded manual by exact product name, then by slug.
func (m *Multi) Manual(product string) (Manual, error) {
	for _, mm := range m.manuals {
		if mm.Product.Name == product {
			return mm, nil
		}
	}
	slug := manual.Slugify(product)
	for _, mm := range m.manuals {
		if slug != "" && mm.Product.Slug() == slug {
			return mm, nil
		}
	}
	return Manual{}, fmt.Errorf("%q: %w", product, domain.ErrProductNotFound)
}

// SearchAll searches every loaded manual. A nil w uses the default weights.
func (m *Multi) SearchAll(ctx context.Context, query string, topK int, w *result.Weights) (result.Multi, error) {
	return m.observe(ScopeAll, func() (result.Multi, error) {
		return m.searchManuals(ctx, m.manuals, query, topK, w)
	})
}

// SearchByCategory searches the manuals of one product category. A category with
// no loaded manual is ErrCategoryNotFound, never an empty result.
func (m *Multi) SearchByCategory(
	ctx context.Context, query, category string, topK int, w *result.Weights,
) (result.Multi, error) {
	return m.observe(ScopeCategory, func() (result.Multi, error) {
		if err := validateQuery(query, topK); err != nil {
			return result.Multi{}, err
		}
		var subset []Manual
		for _, mm := range m.manuals {
			if mm.Product.Category == category {
				subset = append(subset, mm)
			}
		}
		if len(subset) == 0 {
			return result.Multi{}, fmt.Errorf("%q: %w", category, domain.ErrCategoryNotFound)
		}
		return m.searchManuals(ctx, subset, query, topK, w)
	})
}

// SearchProduct searches a single manual. A nil w uses the manual's default weights.
func (m *Multi) SearchProduct(
	ctx context.Context, product, query string, topK int, w *result.Weights,
) (result.Result, error) {
	start := time.Now()
	res, err := m.searchProduct(ctx, product, query, topK, w)
	m.record(ScopeManual, start, err)
	return res, err
}

func (m *Multi) searchProduct(
	ctx context.Context, product, query string, topK int, w *result.Weights,
) (result.Result, error) {
	mm, err := m.Manual(product)
	if err != nil {
		return result.Result{}, err
	}
	weights := mm.Searcher.Weights()
	if w != nil {
		weights = *w
	}
	return mm.Searcher.SearchWithWeights(ctx, query, topK, weights)
}

// Close releases every manual's indexes.
func (m *Multi) Close() error {
	var errs []error
	for _, mm := range m.manuals {
		errs = append(errs, mm.Searcher.Close())
	}
	return errors.Join(errs...)
}

func (m *Multi) searchManuals(
	ctx context.Context, manuals []Manual, query string, topK int, override *result.Weights,
) (result.Multi, error) {
	if err := validateQuery(query, topK); err != nil {
		return result.Multi{}, err
	}
	w := m.weights
	if override != nil {
		if err := override.Validate(); err != nil {
			return result.Multi{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		w = *override
	}

	q, err := m.engine.Prepare(ctx, query)
	if err != nil {
		return result.Multi{}, err
	}

	outcomes := make([]outcome, len(manuals))
	var g errgroup.Group
	g.SetLimit(m.parallel)
	for i, mm := range manuals {
		g.Go(func() error {
			res, err := mm.Searcher.Execute(ctx, q, topK, w)
			outcomes[i] = outcome{manual: mm, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	ok := make([]outcome, 0, len(outcomes))
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			m.logger.Error("Manual search failed",
				zap.String("product", o.manual.Product.Name),
				zap.Error(o.err),
			)
			metrics.ManualSearchFailuresTotal.WithLabelValues(o.manual.Product.Name).Inc()
			errs = append(errs, &domain.ManualError{Product: o.manual.Product.Name, Err: o.err})
			continue
		}
		ok = append(ok, o)
	}
	if len(ok) == 0 {
		return result.Multi{}, fmt.Errorf("all %d manual searches failed: %w", len(manuals), errors.Join(errs...))
	}

	return merge(ok, topK, m.threshold), nil
}

func (m *Multi) observe(scope string, fn func() (result.Multi, error)) (result.Multi, error) {
	start := time.Now()
	res, err := fn()
	m.record(scope, start, err)
	return res, err
}

func (m *Multi) record(scope string, start time.Time, err error) {
	mode := string(m.engine.Mode())
	metrics.SearchDuration.WithLabelValues(scope, mode).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchErrorsTotal.WithLabelValues(scope, mode).Inc()
	}
}
