// Package catalog reads the manuals catalog written by the indexing pipeline.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

// fileDTO mirrors manuals_metadata.json.
type fileDTO struct {
	Manuals []entryDTO `json:"manuals"`
}

type entryDTO struct {
	PDFPath     string         `json:"pdf_path"`
	ProductInfo productInfoDTO `json:"product_info"`
}

type productInfoDTO struct {
	ProductName     string `json:"product_name"`
	ProductCategory string `json:"product_category"`
	Filename        string `json:"filename"`
	Language        string `json:"language"`
}

// Repository loads catalog entries from a JSON file.
type Repository struct {
	path   string
	root   string
	logger *zap.Logger
}

// New creates a catalog repository. Relative pdf paths are resolved against root.
func New(path, root string, logger *zap.Logger) *Repository {
	return &Repository{path: path, root: root, logger: logger}
}

// Load returns the valid catalog entries in file order. A missing file is an
// empty catalog; an entry without a product name or pdf path is logged and skipped.
func (r *Repository) Load() ([]manual.Product, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Manuals catalog not found", zap.String("path", r.path))
			return []manual.Product{}, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", r.path, err)
	}

	var f fileDTO
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", r.path, err)
	}

	products := make([]manual.Product, 0, len(f.Manuals))
	for i, e := range f.Manuals {
		p := r.toProduct(e)
		if err := p.Validate(); err != nil {
			r.logger.Error("Invalid catalog entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *Repository) toProduct(e entryDTO) manual.Product {
	pdf := strings.TrimSpace(e.PDFPath)
	if pdf != "" && r.root != "" && !filepath.IsAbs(pdf) {
		pdf = filepath.Join(r.root, pdf)
	}
	filename := e.ProductInfo.Filename
	if filename == "" && pdf != "" {
		filename = filepath.Base(pdf)
	}
	return manual.Product{
		Name:     strings.TrimSpace(e.ProductInfo.ProductName),
		Category: strings.TrimSpace(e.ProductInfo.ProductCategory),
		Filename: filename,
		Language: e.ProductInfo.Language,
		PDFPath:  pdf,
	}
}
