package index

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// Backend names accepted in configuration.
const (
	BackendFlat      = "flat"
	BackendSQLiteVec = "sqlite-vec"
	// BackendSubstring selects no similarity backend at all (degraded search).
	BackendSubstring = "substring"
)

// Neighbor is one similarity-search hit: a position in the index and its cosine score.
type Neighbor struct {
	Position int
	Score    float32
}

// VectorSearcher answers k-nearest-neighbor queries over a fixed set of vectors.
// Implementations must be safe for concurrent Search calls.
type VectorSearcher interface {
	// Search returns up to k neighbors, best first. The query must be L2-normalized.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Len() int
	Dim() int
	Close() error
}

// Backend builds VectorSearchers from loaded vectors.
type Backend interface {
	Name() string
	// Available reports whether the backend can run in this process.
	Available() error
	Build(v *Vectors) (VectorSearcher, error)
}

// SelectBackend resolves a backend by name and checks it is usable.
// An unusable backend is reported as domain.ErrBackendUnavailable.
func SelectBackend(name string) (Backend, error) {
	var b Backend
	switch name {
	case BackendFlat, "":
		b = Flat{}
	case BackendSQLiteVec:
		b = newSQLiteVec()
	case BackendSubstring:
		return nil, fmt.Errorf("%s: %w", name, domain.ErrBackendUnavailable)
	default:
		return nil, fmt.Errorf("unknown similarity backend %q", name)
	}
	if err := b.Available(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", b.Name(), domain.ErrBackendUnavailable, err)
	}
	return b, nil
}

// clampK bounds k to [0, n].
func clampK(k, n int) int {
	if k < 0 {
		return 0
	}
	if k > n {
		return n
	}
	return k
}
