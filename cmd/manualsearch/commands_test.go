package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	chiTransport "github.com/kailas-cloud/manualrag/internal/transport/chi"
)

// writeFixture lays out two metadata-only manuals and a substring-mode config.
func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	manuals := map[string]string{
		"ART": `{"texts":["Press ZERO to tare","Replace the battery"]}`,
		"LCA": `{"texts":["Connect the red wire to +EXC"]}`,
	}
	for name, texts := range manuals {
		base := filepath.Join(root, name)
		for suffix, meta := range map[string]string{
			"_faiss":        texts,
			"_faiss_tables": `{"tables_markdown":[]}`,
			"_faiss_images": `{"images":[]}`,
		} {
			dir := base + suffix
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(filepath.Join(dir, "meta.json"), []byte(meta), 0o644); err != nil {
				t.Fatalf("write meta: %v", err)
			}
		}
	}

	catalog := `{"manuals":[
		{"pdf_path":"ART.pdf","product_info":{"product_name":"ART Scale","product_category":"Weighing Scale"}},
		{"pdf_path":"LCA.pdf","product_info":{"product_name":"LCA_B","product_category":"Load Cell"}}
	]}`
	if err := os.WriteFile(filepath.Join(root, "manuals_metadata.json"), []byte(catalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg := "manuals:\n  root: " + root + "\nsearch:\n  backend: substring\n"
	path := filepath.Join(root, "test.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("manualsearch %s: %v", strings.Join(args, " "), err)
	}
	return out.Bytes()
}

func TestProductsCommand(t *testing.T) {
	cfg := writeFixture(t)

	var resp chiTransport.ProductsResponse
	if err := json.Unmarshal(run(t, "--config", cfg, "products"), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalProducts != 2 || resp.TotalCategories != 2 {
		t.Errorf("unexpected products: %+v", resp)
	}

	var cats chiTransport.CategoriesResponse
	if err := json.Unmarshal(run(t, "--config", cfg, "categories"), &cats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cats.Total != 2 || cats.Categories[0] != "Load Cell" {
		t.Errorf("unexpected categories: %+v", cats)
	}
}

func TestSearchCommand(t *testing.T) {
	cfg := writeFixture(t)

	var resp chiTransport.SearchResponse
	if err := json.Unmarshal(run(t, "--config", cfg, "search", "red wire"), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != result.ModeSubstring || resp.TotalManualsSearched != 2 {
		t.Errorf("unexpected result: %+v", resp.Multi)
	}
	if len(resp.ByModality.Text) != 1 || resp.ByModality.Text[0].ProductName != "LCA_B" {
		t.Errorf("unexpected hits: %+v", resp.ByModality.Text)
	}

	resp = chiTransport.SearchResponse{}
	if err := json.Unmarshal(run(t, "--config", cfg, "search", "zero", "--category", "Weighing Scale"), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Category != "Weighing Scale" || resp.TotalManualsSearched != 1 {
		t.Errorf("unexpected category result: %+v", resp)
	}
}

func TestManualCommand(t *testing.T) {
	cfg := writeFixture(t)

	var resp chiTransport.ManualSearchResponse
	out := run(t, "--config", cfg, "manual", "art-scale", "battery", "--top-k", "3", "--w-text", "2")
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Product.Name != "ART Scale" || len(resp.ByModality.Text) != 1 {
		t.Errorf("unexpected result: %+v", resp)
	}
	if resp.Evidence.Context != "[Page N/A] Replace the battery" {
		t.Errorf("evidence: %q", resp.Evidence.Context)
	}
}

func TestManualCommand_UnknownProduct(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeFixture(t), "manual", "pump", "x"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestResolveTopK(t *testing.T) {
	if got := resolveTopK(0, 10); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
	if got := resolveTopK(4, 10); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}
