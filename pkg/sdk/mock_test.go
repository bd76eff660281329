package manualrag

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/manualrag/internal/usecase/search"
)

// --- Mocks ---

type mockSearch struct {
	products []Product

	searchAllFn      func(ctx context.Context, query string, topK int, w *result.Weights) (result.Multi, error)
	searchCategoryFn func(ctx context.Context, query, category string, topK int, w *result.Weights) (result.Multi, error)
	searchProductFn  func(ctx context.Context, product, query string, topK int, w *result.Weights) (result.Result, error)
	closed           bool
}

func (m *mockSearch) Mode() result.Mode    { return result.ModeVector }
func (m *mockSearch) Len() int             { return len(m.products) }
func (m *mockSearch) Products() []Product  { return m.products }
func (m *mockSearch) Categories() []string { return []string{"Weighing Scale"} }

func (m *mockSearch) Close() error {
	m.closed = true
	return nil
}

func (m *mockSearch) Manual(product string) (searchuc.Manual, error) {
	for _, p := range m.products {
		if p.Name == product || p.Slug() == product {
			return searchuc.Manual{Product: p}, nil
		}
	}
	return searchuc.Manual{}, fmt.Errorf("%q: %w", product, domain.ErrProductNotFound)
}

func (m *mockSearch) SearchAll(ctx context.Context, query string, topK int, w *result.Weights) (result.Multi, error) {
	return m.searchAllFn(ctx, query, topK, w)
}

func (m *mockSearch) SearchByCategory(
	ctx context.Context, query, category string, topK int, w *result.Weights,
) (result.Multi, error) {
	return m.searchCategoryFn(ctx, query, category, topK, w)
}

func (m *mockSearch) SearchProduct(
	ctx context.Context, product, query string, topK int, w *result.Weights,
) (result.Result, error) {
	return m.searchProductFn(ctx, product, query, topK, w)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// fixedEmbedder returns the same vector for every query.
type fixedEmbedder struct {
	vec    []float32
	tokens int
	err    error
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	return EmbeddingResult{Embedding: e.vec, PromptTokens: e.tokens, TotalTokens: e.tokens}, nil
}

// --- Helpers ---

func testClient(s *mockSearch, obs *observer) *Client {
	return &Client{
		searchSvc: s,
		evidence:  evidence.NewBuilder(""),
		healthSvc: &mockHealth{},
		obs:       obs,
	}
}
