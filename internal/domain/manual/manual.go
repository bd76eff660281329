package manual

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Modality is one of the three independently indexed evidence kinds.
type Modality string

const (
	// Text is prose extracted from the manual pages.
	Text Modality = "text"
	// Tables is tabular data rendered as markdown.
	Tables Modality = "tables"
	// Images is page images, searched through a cross-modal embedding.
	Images Modality = "images"
)

// Modalities returns the modalities in their fixed evaluation order.
func Modalities() []Modality {
	return []Modality{Text, Tables, Images}
}

// IsValid checks if the modality is supported.
func (m Modality) IsValid() bool {
	return m == Text || m == Tables || m == Images
}

// dirSuffix is appended to a manual's base path to locate the modality's index directory.
func (m Modality) dirSuffix() string {
	switch m {
	case Tables:
		return "_faiss_tables"
	case Images:
		return "_faiss_images"
	default:
		return "_faiss"
	}
}

// UnknownPage marks an item whose page could not be determined.
const UnknownPage = -1

// Item is the canonical indexed record. Which payload fields are set depends on the modality:
// text items carry Text, table items Markdown (and optionally CSVPath), image items Path.
type Item struct {
	Text     string
	Markdown string
	CSVPath  *string
	Path     string
	Page     int
}

// HasPage reports whether the item belongs to a known, 1-indexed page.
func (i Item) HasPage() bool { return i.Page >= 1 }

// Product describes one indexed manual and the product it documents.
type Product struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Filename string `json:"filename,omitempty"`
	Language string `json:"language,omitempty"`
	PDFPath  string `json:"-"`
}

// Validate checks the fields required to build and attribute a searcher.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if strings.TrimSpace(p.PDFPath) == "" {
		return fmt.Errorf("product %q: pdf path is required", p.Name)
	}
	return nil
}

// BasePath is the manual's PDF path with its extension stripped.
func (p Product) BasePath() string {
	return strings.TrimSuffix(p.PDFPath, filepath.Ext(p.PDFPath))
}

// IndexDir returns the directory holding the modality's index artifacts.
func (p Product) IndexDir(m Modality) string {
	return IndexDir(p.BasePath(), m)
}

// ImagesDir returns the directory the extracted page images were written to.
func (p Product) ImagesDir() string {
	return p.BasePath() + "_images"
}

// Slug is the URL-safe product identifier used in public image URLs.
func (p Product) Slug() string {
	return Slugify(p.Name)
}

// IndexDir returns the modality's index directory for a manual base path.
func IndexDir(basePath string, m Modality) string {
	return basePath + m.dirSuffix()
}

// Slugify lowercases a product name and reduces every run of characters
// outside [a-z0-9-] to a single hyphen. The result is a single path segment.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	sep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}
