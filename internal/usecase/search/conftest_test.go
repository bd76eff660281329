package search

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/index"
)

// --- Mocks ---

// mockIndex returns fixed raw scores, best first, like a similarity backend would.
type mockIndex struct {
	items   []manual.Item
	matches []index.Match
	err     error
	calls   atomic.Int32
	closed  atomic.Bool
}

func (m *mockIndex) Items() []manual.Item { return m.items }

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]index.Match, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	k = min(max(k, 0), len(m.matches))
	out := make([]index.Match, k)
	copy(out, m.matches[:k])
	return out, nil
}

func (m *mockIndex) Close() error {
	m.closed.Store(true)
	return nil
}

type scored struct {
	item  manual.Item
	score float32
}

// newMockIndex builds an index whose search returns the given items with the given
// raw scores in the given order.
func newMockIndex(entries ...scored) *mockIndex {
	m := &mockIndex{}
	for i, e := range entries {
		m.items = append(m.items, e.item)
		m.matches = append(m.matches, index.Match{Item: e.item, Position: i, Score: e.score})
	}
	return m
}

type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, PromptTokens: m.tokens, TotalTokens: m.tokens}, nil
}

// --- Helpers ---

func newTestEngine() (*VectorEngine, *mockEmbedder, *mockEmbedder) {
	text := &mockEmbedder{vec: []float32{1, 0}, tokens: 3}
	image := &mockEmbedder{vec: []float32{0, 1}, tokens: 2}
	return NewVectorEngine(text, image, index.Flat{}), text, image
}

func newTestUnified(t *testing.T, engine Engine, text, tables, images ModalityIndex) *Unified {
	t.Helper()
	u, err := NewUnified(Indexes{Text: text, Tables: tables, Images: images}, engine, result.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return u
}

func textItem(s string, page int) manual.Item { return manual.Item{Text: s, Page: page} }

func tableItem(md string, page int) manual.Item { return manual.Item{Markdown: md, Page: page} }

func imageItem(path string, page int) manual.Item { return manual.Item{Path: path, Page: page} }

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nopLogger() *zap.Logger { return zap.NewNop() }
