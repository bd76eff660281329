package manualrag

import (
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
)

// Product describes one indexed manual.
type Product = manual.Product

// Weights are the per-modality fusion weights.
type Weights = result.Weights

// Hit is one retrieved text chunk, table or page image.
type Hit = result.Hit

// PageScore is one entry of the fused page ranking.
type PageScore = result.PageScore

// Mode is the retrieval strategy: vector or substring.
type Mode = result.Mode

// Retrieval strategies.
const (
	ModeVector    = result.ModeVector
	ModeSubstring = result.ModeSubstring
)

// Evidence is the page-cited context for an answer generator.
type Evidence = evidence.Evidence

// ManualResult is the outcome of a single-manual search.
type ManualResult struct {
	Product Product
	result.Result
	Evidence Evidence

	// EmbeddingTokens counts the tokens the query embeddings consumed (0 on cache hits).
	EmbeddingTokens int
}

// MultiResult is the outcome of a search over several manuals. Every hit and
// page carries the product it came from.
type MultiResult struct {
	result.Multi
	Evidence        Evidence
	EmbeddingTokens int
}

// DefaultWeights returns text 1.0, tables 1.0, images 1.5.
func DefaultWeights() Weights { return result.DefaultWeights() }
