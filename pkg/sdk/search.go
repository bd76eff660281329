package manualrag

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/manualrag/internal/usecase/search"
)

// SearchOption tunes a single search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK     int
	weights  *result.Weights
	category string
}

// TopK sets how many hits per modality (and fused pages) are returned.
func TopK(n int) SearchOption {
	return func(c *searchConfig) { c.topK = n }
}

// WithWeights overrides the client's default modality weights for one call.
func WithWeights(w Weights) SearchOption {
	return func(c *searchConfig) { c.weights = &w }
}

// InCategory restricts Search to the manuals of one product category.
// Ignored by SearchManual.
func InCategory(category string) SearchOption {
	return func(c *searchConfig) { c.category = category }
}

func applySearchOptions(defaultTopK int, opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: defaultTopK}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Search queries every loaded manual, or one category with InCategory.
// Default top-k: 10 across all manuals, 5 within a category.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (res MultiResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	cfg := applySearchOptions(0, opts)
	if cfg.topK == 0 {
		cfg.topK = searchuc.DefaultMultiTopK
		if cfg.category != "" {
			cfg.topK = searchuc.DefaultCategoryTopK
		}
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	var multi result.Multi
	if cfg.category != "" {
		multi, err = c.searchSvc.SearchByCategory(ctx, query, cfg.category, cfg.topK, cfg.weights)
	} else {
		multi, err = c.searchSvc.SearchAll(ctx, query, cfg.topK, cfg.weights)
	}
	if err != nil {
		return MultiResult{}, fmt.Errorf("search: %w", err)
	}

	return MultiResult{
		Multi:           multi,
		Evidence:        c.evidence.BuildMulti(multi),
		EmbeddingTokens: usage.TotalTokens(),
	}, nil
}

// SearchManual queries the manual of one product, named by its product name or slug.
// Default top-k: 5.
func (c *Client) SearchManual(
	ctx context.Context, product, query string, opts ...SearchOption,
) (res ManualResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_manual", start, err) }()

	cfg := applySearchOptions(searchuc.DefaultTopK, opts)

	m, err := c.searchSvc.Manual(product)
	if err != nil {
		return ManualResult{}, fmt.Errorf("search manual: %w", err)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	r, err := c.searchSvc.SearchProduct(ctx, m.Product.Name, query, cfg.topK, cfg.weights)
	if err != nil {
		return ManualResult{}, fmt.Errorf("search manual: %w", err)
	}

	return ManualResult{
		Product:         m.Product,
		Result:          r,
		Evidence:        c.evidence.Build(m.Product, r),
		EmbeddingTokens: usage.TotalTokens(),
	}, nil
}
