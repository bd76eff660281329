// Package evidence turns search results into the page-cited context handed to
// the answer generator, plus public URLs of the relevant page images.
package evidence

import (
	"cmp"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
)

// DefaultImagePrefix is the public URL prefix page images are served under.
const DefaultImagePrefix = "/images"

// minImageScore is the normalized score an image needs to be cited.
const minImageScore = 0.3

// Per-source limits: how many hits of each modality are cited.
type limits struct {
	text, tables, imageRefs, imageURLs int
}

var (
	singleLimits = limits{text: 3, tables: 2, imageRefs: 2, imageURLs: 3}
	multiLimits  = limits{text: 5, tables: 3, imageRefs: 3, imageURLs: 3}
)

// Evidence is the generator-facing view of a search result.
type Evidence struct {
	Context         string   `json:"context"`
	TotalResults    int      `json:"total_results"`
	ImageReferences []string `json:"image_references"`
	ImageURLs       []string `json:"image_urls"`
}

// Builder assembles Evidence.
type Builder struct {
	prefix string
}

// NewBuilder creates a builder. An empty prefix uses DefaultImagePrefix.
func NewBuilder(imagePrefix string) *Builder {
	if imagePrefix == "" {
		imagePrefix = DefaultImagePrefix
	}
	return &Builder{prefix: strings.TrimSuffix(imagePrefix, "/")}
}

// Build cites a single-manual result. With a named product, image URLs are
// scoped to it (prefix/<slug>/<file>); otherwise they are prefix/<file>.
func (b *Builder) Build(p manual.Product, r result.Result) Evidence {
	var parts, refs, urls []string

	for _, h := range head(r.ByModality.Text, singleLimits.text) {
		if strings.TrimSpace(h.Text) != "" {
			parts = append(parts, fmt.Sprintf("[Page %s] %s", pageLabel(h.Page), h.Text))
		}
	}
	for _, h := range head(r.ByModality.Tables, singleLimits.tables) {
		if strings.TrimSpace(h.Markdown) != "" {
			parts = append(parts, fmt.Sprintf("[Table - Page %s] %s", pageLabel(h.Page), h.Markdown))
		}
	}
	for _, h := range head(r.ByModality.Images, singleLimits.imageRefs) {
		if citable(h) {
			refs = append(refs, fmt.Sprintf("[Image - Page %s]", pageLabel(h.Page)))
		}
	}
	if len(refs) > 0 {
		parts = append(parts, "Related images: "+strings.Join(refs, ", "))
	}
	for _, h := range head(r.ByModality.Images, singleLimits.imageURLs) {
		if citable(h) {
			urls = append(urls, b.imageURL(p.Name, h.Path))
		}
	}

	return newEvidence(parts, refs, urls)
}

// BuildMulti cites a merged multi-manual result; every citation names its product.
func (b *Builder) BuildMulti(r result.Multi) Evidence {
	var parts, refs, urls []string

	for _, h := range head(r.ByModality.Text, multiLimits.text) {
		if strings.TrimSpace(h.Text) != "" {
			parts = append(parts, fmt.Sprintf("[%s - Page %s] %s", productLabel(h), pageLabel(h.Page), h.Text))
		}
	}
	for _, h := range head(r.ByModality.Tables, multiLimits.tables) {
		if strings.TrimSpace(h.Markdown) != "" {
			parts = append(parts, fmt.Sprintf("[%s - Table Page %s] %s", productLabel(h), pageLabel(h.Page), h.Markdown))
		}
	}
	for _, h := range head(r.ByModality.Images, multiLimits.imageRefs) {
		if citable(h) {
			refs = append(refs, fmt.Sprintf("[%s - Image Page %s]", productLabel(h), pageLabel(h.Page)))
			urls = append(urls, b.imageURL(h.ProductName, h.Path))
		}
	}

	if related := relevantProducts(r.ByProduct); len(related) > 0 {
		parts = append(parts, "Related products: "+strings.Join(related, ", "))
	}
	if len(refs) > 0 {
		parts = append(parts, "Related images: "+strings.Join(refs, ", "))
	}

	return newEvidence(parts, refs, urls)
}

func (b *Builder) imageURL(product, imagePath string) string {
	file := filepath.Base(imagePath)
	if product == "" {
		return path.Join(b.prefix, file)
	}
	return path.Join(b.prefix, manual.Slugify(product), file)
}

// relevantProducts lists products with at least one relevant hit, most relevant first.
func relevantProducts(by map[string]result.ProductSummary) []string {
	type entry struct {
		name  string
		total int
	}
	var entries []entry
	for name, s := range by {
		if s.RelevantResults.Total > 0 {
			entries = append(entries, entry{name, s.RelevantResults.Total})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.total, a.total); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func newEvidence(parts, refs, urls []string) Evidence {
	return Evidence{
		Context:         strings.Join(parts, "\n\n"),
		TotalResults:    len(parts),
		ImageReferences: nonNil(refs),
		ImageURLs:       nonNil(urls),
	}
}

func citable(h result.Hit) bool {
	return h.Path != "" && h.Score > minImageScore
}

func pageLabel(page int) string {
	if page < 1 {
		return "N/A"
	}
	return fmt.Sprint(page)
}

func productLabel(h result.Hit) string {
	if h.ProductName == "" {
		return "Unknown"
	}
	return h.ProductName
}

func head(hits []result.Hit, n int) []result.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
