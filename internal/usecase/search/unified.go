package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/index"
)

// DefaultTopK is the single-manual default result count.
const DefaultTopK = 5

// Indexes are the three modality indexes of one manual.
type Indexes struct {
	Text   ModalityIndex
	Tables ModalityIndex
	Images ModalityIndex
}

// Get returns the index of a modality.
func (ix Indexes) Get(m manual.Modality) ModalityIndex {
	switch m {
	case manual.Tables:
		return ix.Tables
	case manual.Images:
		return ix.Images
	default:
		return ix.Text
	}
}

// Close closes every non-nil index.
func (ix Indexes) Close() error {
	var errs []error
	for _, m := range manual.Modalities() {
		if idx := ix.Get(m); idx != nil {
			errs = append(errs, idx.Close())
		}
	}
	return errors.Join(errs...)
}

// Unified searches one manual across all three modalities and fuses per page.
// Immutable after construction; safe for concurrent use.
type Unified struct {
	indexes Indexes
	engine  Engine
	weights result.Weights
}

// OpenUnified loads the three modality indexes of the manual at basePath
// (a trailing file extension is stripped) with the engine's backend.
// Any missing or broken modality fails construction.
func OpenUnified(basePath string, engine Engine, w result.Weights) (*Unified, error) {
	base := strings.TrimSuffix(basePath, filepath.Ext(basePath))

	var ix Indexes
	for _, m := range manual.Modalities() {
		mod, err := index.Open(manual.IndexDir(base, m), engine.Backend())
		if err != nil {
			_ = ix.Close()
			return nil, fmt.Errorf("open %s index: %w", m, err)
		}
		switch m {
		case manual.Text:
			ix.Text = mod
		case manual.Tables:
			ix.Tables = mod
		case manual.Images:
			ix.Images = mod
		}
	}

	u, err := NewUnified(ix, engine, w)
	if err != nil {
		_ = ix.Close()
		return nil, err
	}
	return u, nil
}

// NewUnified creates a searcher over already loaded indexes.
func NewUnified(ix Indexes, engine Engine, w result.Weights) (*Unified, error) {
	if ix.Text == nil || ix.Tables == nil || ix.Images == nil {
		return nil, fmt.Errorf("all three modality indexes are required")
	}
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return &Unified{indexes: ix, engine: engine, weights: w}, nil
}

// Weights returns the default fusion weights.
func (u *Unified) Weights() result.Weights { return u.weights }

// Mode returns the retrieval strategy in use.
func (u *Unified) Mode() result.Mode { return u.engine.Mode() }

// Search runs query with the default weights.
func (u *Unified) Search(ctx context.Context, query string, topK int) (result.Result, error) {
	return u.SearchWithWeights(ctx, query, topK, u.weights)
}

// SearchWithWeights runs query with explicit fusion weights.
func (u *Unified) SearchWithWeights(
	ctx context.Context, query string, topK int, w result.Weights,
) (result.Result, error) {
	if err := validateQuery(query, topK); err != nil {
		return result.Result{}, err
	}
	if err := w.Validate(); err != nil {
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	q, err := u.engine.Prepare(ctx, query)
	if err != nil {
		return result.Result{}, err
	}
	return u.Execute(ctx, q, topK, w)
}

// Execute runs an already prepared query. Used by the multi-manual searcher so
// the query is embedded once for all manuals.
func (u *Unified) Execute(ctx context.Context, q Query, topK int, w result.Weights) (result.Result, error) {
	return u.engine.Execute(ctx, u.indexes, q, topK, w)
}

// Close releases the indexes.
func (u *Unified) Close() error {
	return u.indexes.Close()
}

func validateQuery(query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if topK < 0 {
		return fmt.Errorf("%w: top_k must be >= 0, got %d", domain.ErrInvalidRequest, topK)
	}
	return nil
}
