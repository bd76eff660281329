package index

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

func TestParseMeta_Shapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []manual.Item
	}{
		{
			name: "items",
			data: `{"items":[{"text":"Calibration step one","page":3},{"text":"Unrelated content","page":7}]}`,
			want: []manual.Item{{Text: "Calibration step one", Page: 3}, {Text: "Unrelated content", Page: 7}},
		},
		{
			name: "texts",
			data: `{"texts":["a","b"]}`,
			want: []manual.Item{{Text: "a", Page: -1}, {Text: "b", Page: -1}},
		},
		{
			name: "images",
			data: `{"images":["img/p1.png"]}`,
			want: []manual.Item{{Path: "img/p1.png", Page: -1}},
		},
		{
			name: "tables_markdown",
			data: `{"tables_markdown":["| a |"]}`,
			want: []manual.Item{{Markdown: "| a |", Page: -1}},
		},
		{
			name: "items wins over texts",
			data: `{"texts":["ignored"],"items":[{"path":"x.png","page":2}]}`,
			want: []manual.Item{{Path: "x.png", Page: 2}},
		},
		{
			name: "texts wins over images",
			data: `{"images":["x.png"],"texts":["t"]}`,
			want: []manual.Item{{Text: "t", Page: -1}},
		},
		{
			name: "empty items",
			data: `{"items":[]}`,
			want: []manual.Item{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMeta([]byte(tc.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d items, got %d", len(tc.want), len(got))
			}
			for i := range tc.want {
				g, w := got[i], tc.want[i]
				if g.Text != w.Text || g.Markdown != w.Markdown || g.Path != w.Path || g.Page != w.Page {
					t.Errorf("item %d = %+v, want %+v", i, g, w)
				}
			}
		})
	}
}

func TestParseMeta_TableCSVPath(t *testing.T) {
	items, err := ParseMeta([]byte(`{"items":[
		{"markdown":"| a |","page":4,"csv_path":"t/p4.csv"},
		{"markdown":"| b |","page":5,"csv_path":null}
	]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].CSVPath == nil || *items[0].CSVPath != "t/p4.csv" {
		t.Errorf("expected csv path, got %v", items[0].CSVPath)
	}
	if items[1].CSVPath != nil {
		t.Errorf("expected nil csv path, got %q", *items[1].CSVPath)
	}
}

func TestParseMeta_Page(t *testing.T) {
	tests := map[string]int{
		`{"items":[{"text":"x"}]}`:              -1,
		`{"items":[{"text":"x","page":null}]}`:  -1,
		`{"items":[{"text":"x","page":12}]}`:    12,
		`{"items":[{"text":"x","page":"12"}]}`:  12,
		`{"items":[{"text":"x","page":4.0}]}`:   4,
		`{"items":[{"text":"x","page":-1}]}`:    -1,
		`{"items":[{"text":"x","page":"n/a"}]}`: -1,
	}
	for data, want := range tests {
		items, err := ParseMeta([]byte(data))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", data, err)
		}
		if items[0].Page != want {
			t.Errorf("%s: page = %d, want %d", data, items[0].Page, want)
		}
	}
}

func TestParseMeta_Unsupported(t *testing.T) {
	for _, data := range []string{
		`{"chunks":["a"]}`,
		`{}`,
		`["a","b"]`,
		`null`,
		`{"texts":[1,2]}`,
		`{"items":{"text":"x"}}`,
		`not json`,
	} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseMeta([]byte(data))
			if !errors.Is(err, domain.ErrUnsupportedSchema) {
				t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
			}
		})
	}
}

func TestReadMeta_NotFound(t *testing.T) {
	_, err := ReadMeta(filepath.Join(t.TempDir(), MetaFile))
	if !errors.Is(err, domain.ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}
}
