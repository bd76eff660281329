package result

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

func TestNewHit(t *testing.T) {
	csv := "tables/p3_t1.csv"
	item := manual.Item{Markdown: "| a | b |", CSVPath: &csv, Page: 3}

	h := NewHit(item, 0.75)
	if h.Score != 0.75 || h.Page != 3 {
		t.Errorf("unexpected hit: %+v", h)
	}
	if h.Markdown != "| a | b |" || h.CSVPath == nil || *h.CSVPath != csv {
		t.Errorf("payload not copied: %+v", h)
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	for _, w := range []Weights{
		{Text: 0, Tables: 1, Images: 1},
		{Text: 1, Tables: -1, Images: 1},
		{Text: 1, Tables: 1, Images: 0},
	} {
		if err := w.Validate(); err == nil {
			t.Errorf("expected error for %+v", w)
		}
	}
}

func TestWeights_For(t *testing.T) {
	w := DefaultWeights()
	if w.For(manual.Text) != 1.0 || w.For(manual.Tables) != 1.0 || w.For(manual.Images) != 1.5 {
		t.Errorf("unexpected weights: %+v", w)
	}
}

func TestByModality_GetSet(t *testing.T) {
	var b ByModality
	for i, m := range manual.Modalities() {
		b.Set(m, []Hit{{Page: i + 1}})
	}
	for i, m := range manual.Modalities() {
		got := b.Get(m)
		if len(got) != 1 || got[0].Page != i+1 {
			t.Errorf("Get(%s) = %+v", m, got)
		}
	}
}

func TestEmpty_SerializesEmptyLists(t *testing.T) {
	data, err := json.Marshal(Empty(DefaultWeights(), ModeVector))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"text":[]`, `"tables":[]`, `"images":[]`, `"by_page":[]`, `"mode":"vector"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestPageScore_AttributionFlattened(t *testing.T) {
	ps := PageScore{Page: 12, Score: 1.5, Attribution: Attribution{ProductName: "ART Scale", ProductCategory: "Weighing Scale"}}
	data, err := json.Marshal(ps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"page":12,"score":1.5,"product_name":"ART Scale","product_category":"Weighing Scale"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
