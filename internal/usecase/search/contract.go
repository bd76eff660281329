package search

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/index"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ModalityIndex is one loaded modality of a manual (see index.Modality).
type ModalityIndex interface {
	Items() []manual.Item
	Search(ctx context.Context, query []float32, k int) ([]index.Match, error)
	Close() error
}
