package result

import (
	"fmt"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

// Mode tells the caller which retrieval strategy produced a result.
type Mode string

const (
	// ModeVector is embedding similarity search with page fusion.
	ModeVector Mode = "vector"
	// ModeSubstring is the degraded substring-count search over text only.
	ModeSubstring Mode = "substring"
)

// Weights are the per-modality fusion weights.
type Weights struct {
	Text   float64 `json:"text"`
	Tables float64 `json:"tables"`
	Images float64 `json:"images"`
}

// DefaultWeights returns 1.0 / 1.0 / 1.5.
func DefaultWeights() Weights {
	return Weights{Text: 1.0, Tables: 1.0, Images: 1.5}
}

// UniformWeights returns 1.0 for every modality; reported by the substring strategy.
func UniformWeights() Weights {
	return Weights{Text: 1.0, Tables: 1.0, Images: 1.0}
}

// Validate checks that all weights are positive.
func (w Weights) Validate() error {
	if w.Text <= 0 || w.Tables <= 0 || w.Images <= 0 {
		return fmt.Errorf("weights must be positive, got text=%g tables=%g images=%g",
			w.Text, w.Tables, w.Images)
	}
	return nil
}

// For returns the weight of a modality.
func (w Weights) For(m manual.Modality) float64 {
	switch m {
	case manual.Tables:
		return w.Tables
	case manual.Images:
		return w.Images
	default:
		return w.Text
	}
}

// Attribution ties a hit or page to the manual it came from. Empty for single-manual searches.
type Attribution struct {
	ProductName     string `json:"product_name,omitempty"`
	ProductCategory string `json:"product_category,omitempty"`
	PDFPath         string `json:"pdf_path,omitempty"`
}

// Hit is one retrieved item with its per-query normalized score.
type Hit struct {
	Score    float64 `json:"score"`
	Page     int     `json:"page"`
	Text     string  `json:"text,omitempty"`
	Markdown string  `json:"markdown,omitempty"`
	CSVPath  *string `json:"csv_path,omitempty"`
	Path     string  `json:"path,omitempty"`
	Attribution
}

// NewHit builds a hit from an indexed item.
func NewHit(item manual.Item, score float64) Hit {
	return Hit{
		Score:    score,
		Page:     item.Page,
		Text:     item.Text,
		Markdown: item.Markdown,
		CSVPath:  item.CSVPath,
		Path:     item.Path,
	}
}

// PageScore is one entry of the fused page ranking.
type PageScore struct {
	Page  int     `json:"page"`
	Score float64 `json:"score"`
	Attribution
}

// ByModality holds the per-modality hit lists.
type ByModality struct {
	Text   []Hit `json:"text"`
	Tables []Hit `json:"tables"`
	Images []Hit `json:"images"`
}

// Get returns the hit list of a modality.
func (b *ByModality) Get(m manual.Modality) []Hit {
	switch m {
	case manual.Tables:
		return b.Tables
	case manual.Images:
		return b.Images
	default:
		return b.Text
	}
}

// Set replaces the hit list of a modality.
func (b *ByModality) Set(m manual.Modality, hits []Hit) {
	switch m {
	case manual.Tables:
		b.Tables = hits
	case manual.Images:
		b.Images = hits
	default:
		b.Text = hits
	}
}

// Result is the single-manual fused search output.
type Result struct {
	ByModality ByModality  `json:"by_modality"`
	ByPage     []PageScore `json:"by_page"`
	Weights    Weights     `json:"weights"`
	Mode       Mode        `json:"mode"`
}

// Empty returns a successful result with no matches. Slices are non-nil so
// zero matches serialize as [] rather than null.
func Empty(w Weights, mode Mode) Result {
	return Result{
		ByModality: ByModality{Text: []Hit{}, Tables: []Hit{}, Images: []Hit{}},
		ByPage:     []PageScore{},
		Weights:    w,
		Mode:       mode,
	}
}

// RelevantCounts counts hits above the relevance threshold per modality.
type RelevantCounts struct {
	Text   int `json:"text"`
	Tables int `json:"tables"`
	Images int `json:"images"`
	Total  int `json:"total"`
}

// ProductSummary tells a caller whether a product is relevant to the query at all.
type ProductSummary struct {
	Product         manual.Product `json:"product_info"`
	RelevantResults RelevantCounts `json:"relevant_results"`
	TopPages        []PageScore    `json:"top_pages"`
}

// Multi is the cross-manual search output. Page numbers in ByPage are only
// meaningful together with their attribution.
type Multi struct {
	ByModality           ByModality                `json:"by_modality"`
	ByPage               []PageScore               `json:"by_page"`
	ByProduct            map[string]ProductSummary `json:"by_product"`
	TotalManualsSearched int                       `json:"total_manuals_searched"`
	Weights              Weights                   `json:"weights"`
	Mode                 Mode                      `json:"mode"`
}
