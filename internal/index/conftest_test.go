package index

import (
	"os"
	"path/filepath"
	"testing"
)

// writeModalityDir writes a FAISS flat index and a meta.json into a fresh directory.
func writeModalityDir(t *testing.T, meta string, dim int, data []float32) string {
	t.Helper()
	dir := t.TempDir()
	if err := WriteFlatIP(filepath.Join(dir, IndexFile), dim, data); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	return dir
}

func approxEqual(a, b float32) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}
