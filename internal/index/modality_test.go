package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

const textMeta = `{"items":[
	{"text":"Calibration step one","page":3},
	{"text":"Unrelated content","page":7},
	{"text":"Cover","page":-1}
]}`

func TestOpen_Aligned(t *testing.T) {
	dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1, 1, 1})

	m, err := Open(dir, Flat{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = m.Close() }()

	if m.Len() != 3 || m.Dim() != 2 || !m.HasVectors() {
		t.Fatalf("unexpected modality: len=%d dim=%d vectors=%v", m.Len(), m.Dim(), m.HasVectors())
	}

	// every vector must find its own item first
	for i, q := range [][]float32{{1, 0}, {0, 1}, {1, 1}} {
		got, err := m.Search(context.Background(), q, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want, _ := m.Item(i)
		if got[0].Position != i || got[0].Item.Text != want.Text {
			t.Errorf("query %d matched %+v, want position %d (%q)", i, got[0], i, want.Text)
		}
	}
}

func TestOpen_CountMismatch(t *testing.T) {
	dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1})

	_, err := Open(dir, Flat{})
	if !errors.Is(err, domain.ErrIndexMismatch) {
		t.Fatalf("expected ErrIndexMismatch, got %v", err)
	}
}

func TestOpen_MissingArtifacts(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope_faiss"), Flat{})
		if !errors.Is(err, domain.ErrIndexNotFound) {
			t.Fatalf("expected ErrIndexNotFound, got %v", err)
		}
	})
	t.Run("missing index file", func(t *testing.T) {
		dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1, 1, 1})
		if err := os.Remove(filepath.Join(dir, IndexFile)); err != nil {
			t.Fatalf("remove: %v", err)
		}
		_, err := Open(dir, Flat{})
		if !errors.Is(err, domain.ErrIndexNotFound) {
			t.Fatalf("expected ErrIndexNotFound, got %v", err)
		}
	})
	t.Run("missing meta", func(t *testing.T) {
		dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1, 1, 1})
		if err := os.Remove(filepath.Join(dir, MetaFile)); err != nil {
			t.Fatalf("remove: %v", err)
		}
		_, err := Open(dir, Flat{})
		if !errors.Is(err, domain.ErrMetadataNotFound) {
			t.Fatalf("expected ErrMetadataNotFound, got %v", err)
		}
	})
	t.Run("unsupported schema", func(t *testing.T) {
		dir := writeModalityDir(t, `{"chunks":[]}`, 2, nil)
		_, err := Open(dir, Flat{})
		if !errors.Is(err, domain.ErrUnsupportedSchema) {
			t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
		}
	})
}

func TestOpen_MetadataOnly(t *testing.T) {
	dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1, 1, 1})
	if err := os.Remove(filepath.Join(dir, IndexFile)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	m, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Len() != 3 || m.HasVectors() || m.Dim() != 0 {
		t.Fatalf("expected metadata-only modality, got len=%d vectors=%v", m.Len(), m.HasVectors())
	}
	if _, err := m.Search(context.Background(), []float32{1, 0}, 1); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestModality_SearchDoesNotModifyQuery(t *testing.T) {
	dir := writeModalityDir(t, textMeta, 2, []float32{1, 0, 0, 1, 1, 1})
	m, err := Open(dir, Flat{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := []float32{3, 4}
	got, err := m.Search(context.Background(), q, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q[0] != 3 || q[1] != 4 {
		t.Errorf("query modified: %v", q)
	}
	// cos((3,4),(0,1)) = 0.8 is the best match
	if got[0].Position != 1 || !approxEqual(got[0].Score, 0.8) {
		t.Errorf("unexpected best match: %+v", got[0])
	}
}

func TestModality_DimMismatch(t *testing.T) {
	m, err := New([]manual.Item{{Text: "a"}}, mustVectors(t, 2, []float32{1, 0}), Flat{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Search(context.Background(), []float32{1}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestModality_ConcurrentSearch(t *testing.T) {
	const n = 50
	items := make([]manual.Item, n)
	data := make([]float32, 0, n*3)
	for i := range n {
		items[i] = manual.Item{Text: fmt.Sprintf("item %d", i), Page: i + 1}
		data = append(data, float32(i), float32(n-i), 1)
	}
	m, err := New(items, mustVectors(t, 3, data), Flat{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, err := m.Search(context.Background(), []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Search(context.Background(), []float32{1, 2, 3}, 5)
			if err != nil {
				errs <- err
				return
			}
			for i := range want {
				if got[i].Position != want[i].Position || got[i].Score != want[i].Score {
					errs <- fmt.Errorf("result %d differs: %+v vs %+v", i, got[i], want[i])
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestModality_ItemOutOfRange(t *testing.T) {
	m, err := New([]manual.Item{{Text: "only"}}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, i := range []int{-1, 1} {
		if _, ok := m.Item(i); ok {
			t.Errorf("Item(%d) should be out of range", i)
		}
	}
	if got := m.Items(); len(got) != 1 || !strings.HasPrefix(got[0].Text, "only") {
		t.Errorf("unexpected items: %+v", got)
	}
}

func mustVectors(t *testing.T, dim int, data []float32) *Vectors {
	t.Helper()
	v, err := NewVectors(dim, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}
