package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

// Artifact file names inside a modality index directory.
const (
	IndexFile = "index.faiss"
	MetaFile  = "meta.json"
)

// Match is a retrieved item with its raw cosine similarity.
type Match struct {
	Item     manual.Item
	Position int
	Score    float32
}

// Modality is one loaded, immutable modality index: the similarity structure and
// the items in vector order. Safe for concurrent use.
type Modality struct {
	dir      string
	items    []manual.Item
	searcher VectorSearcher
}

// Open loads dir/index.faiss and dir/meta.json. With a nil backend only the
// metadata is loaded and Search is unavailable.
func Open(dir string, backend Backend) (*Modality, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	items, err := ReadMeta(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return &Modality{dir: dir, items: items}, nil
	}

	vecs, err := ReadFlat(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}
	m, err := New(items, vecs, backend)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	m.dir = dir
	return m, nil
}

// New builds a modality from in-memory items and vectors. Item i belongs to vector i.
func New(items []manual.Item, vecs *Vectors, backend Backend) (*Modality, error) {
	if backend == nil || vecs == nil {
		return &Modality{items: items}, nil
	}
	if vecs.Len() != len(items) {
		return nil, fmt.Errorf("%w: %d vectors, %d items", domain.ErrIndexMismatch, vecs.Len(), len(items))
	}
	s, err := backend.Build(vecs)
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", backend.Name(), err)
	}
	return &Modality{items: items, searcher: s}, nil
}

// Dir returns the directory the index was loaded from, empty for in-memory indexes.
func (m *Modality) Dir() string { return m.dir }

// Len returns the number of items.
func (m *Modality) Len() int { return len(m.items) }

// Items returns the items in vector order. Callers must not modify the slice.
func (m *Modality) Items() []manual.Item { return m.items }

// Item returns the item at position i.
func (m *Modality) Item(i int) (manual.Item, bool) {
	if i < 0 || i >= len(m.items) {
		return manual.Item{}, false
	}
	return m.items[i], true
}

// HasVectors reports whether similarity search is available.
func (m *Modality) HasVectors() bool { return m.searcher != nil }

// Dim returns the vector dimension, 0 without vectors.
func (m *Modality) Dim() int {
	if m.searcher == nil {
		return 0
	}
	return m.searcher.Dim()
}

// Search returns the top-k items by cosine similarity to query, best first.
// The query is L2-normalized here; the caller's slice is not modified.
func (m *Modality) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if m.searcher == nil {
		return nil, fmt.Errorf("search %s: %w", m.dir, domain.ErrBackendUnavailable)
	}
	if len(query) != m.searcher.Dim() {
		return nil, fmt.Errorf("%w: query dim %d, index dim %d",
			domain.ErrVectorDimMismatch, len(query), m.searcher.Dim())
	}

	neighbors, err := m.searcher.Search(ctx, normalizedCopy(query), k)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		item, ok := m.Item(n.Position)
		if !ok {
			continue
		}
		out = append(out, Match{Item: item, Position: n.Position, Score: n.Score})
	}
	return out, nil
}

// Close releases the similarity structure.
func (m *Modality) Close() error {
	if m.searcher == nil {
		return nil
	}
	return m.searcher.Close()
}
