package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// Flat is the exact in-memory inner-product backend, equivalent to a FAISS IndexFlatIP.
type Flat struct{}

// Name returns the backend name.
func (Flat) Name() string { return BackendFlat }

// Available always succeeds.
func (Flat) Available() error { return nil }

// Build wraps the vectors without copying them.
func (Flat) Build(v *Vectors) (VectorSearcher, error) {
	if v == nil {
		return nil, fmt.Errorf("flat: nil vectors")
	}
	return &flatSearcher{vecs: v}, nil
}

type flatSearcher struct {
	vecs *Vectors
}

// Search scans all vectors. Equal scores keep index order.
func (s *flatSearcher) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != s.vecs.Dim {
		return nil, fmt.Errorf("%w: query dim %d, index dim %d", domain.ErrVectorDimMismatch, len(query), s.vecs.Dim)
	}
	n := s.vecs.Len()
	k = clampK(k, n)
	if k == 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, n)
	for i := range n {
		all[i] = Neighbor{Position: i, Score: dot(query, s.vecs.Row(i))}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].Score > all[b].Score })
	return all[:k], nil
}

func (s *flatSearcher) Len() int     { return s.vecs.Len() }
func (s *flatSearcher) Dim() int     { return s.vecs.Dim }
func (s *flatSearcher) Close() error { return nil }
