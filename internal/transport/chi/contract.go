package chi

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/manualrag/internal/usecase/search"
)

// Searcher is the manual collection the API serves.
type Searcher interface {
	Len() int
	Products() []manual.Product
	Categories() []string
	Manual(product string) (searchuc.Manual, error)
	SearchAll(ctx context.Context, query string, topK int, w *result.Weights) (result.Multi, error)
	SearchByCategory(ctx context.Context, query, category string, topK int, w *result.Weights) (result.Multi, error)
	SearchProduct(ctx context.Context, product, query string, topK int, w *result.Weights) (result.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
