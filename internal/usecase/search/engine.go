package search

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/index"
)

// Query is a prepared query: the raw text plus whatever the engine derived from it.
// A prepared query can be executed against any number of manuals.
type Query struct {
	Text     string
	TextVec  []float32
	ImageVec []float32
}

// Engine is a retrieval strategy, selected once at startup.
type Engine interface {
	Mode() result.Mode
	// Backend is the similarity backend indexes are opened with. Nil loads metadata only.
	Backend() index.Backend
	Prepare(ctx context.Context, text string) (Query, error)
	Execute(ctx context.Context, ix Indexes, q Query, topK int, w result.Weights) (result.Result, error)
}

// VectorEngine embeds the query twice and fuses cosine-similarity results per page.
type VectorEngine struct {
	text    Embedder
	image   Embedder
	backend index.Backend
}

// NewVectorEngine creates the embedding-based strategy. text serves the text and
// table modalities, image is the cross-modal model for the image modality.
func NewVectorEngine(text, image Embedder, backend index.Backend) *VectorEngine {
	return &VectorEngine{text: text, image: image, backend: backend}
}

// Mode implements Engine.
func (e *VectorEngine) Mode() result.Mode { return result.ModeVector }

// Backend implements Engine.
func (e *VectorEngine) Backend() index.Backend { return e.backend }

// Prepare embeds the query with both models concurrently.
func (e *VectorEngine) Prepare(ctx context.Context, text string) (Query, error) {
	q := Query{Text: text}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := e.text.Embed(gctx, text)
		if err != nil {
			return fmt.Errorf("vectorize query (text): %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		q.TextVec = res.Embedding
		return nil
	})
	g.Go(func() error {
		res, err := e.image.Embed(gctx, text)
		if err != nil {
			return fmt.Errorf("vectorize query (image): %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		q.ImageVec = res.Embedding
		return nil
	})

	if err := g.Wait(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Execute searches the three modalities, min-max normalizes each result set
// and accumulates the weighted scores per page.
func (e *VectorEngine) Execute(
	ctx context.Context, ix Indexes, q Query, topK int, w result.Weights,
) (result.Result, error) {
	res := result.Empty(w, result.ModeVector)

	for _, m := range manual.Modalities() {
		vec := q.TextVec
		if m == manual.Images {
			vec = q.ImageVec
		}

		matches, err := ix.Get(m).Search(ctx, vec, topK)
		if err != nil {
			return result.Result{}, fmt.Errorf("search %s: %w", m, err)
		}

		raw := make([]float64, len(matches))
		for i, mt := range matches {
			raw[i] = float64(mt.Score)
		}
		norm := minMax(raw)

		hits := make([]result.Hit, len(matches))
		for i, mt := range matches {
			hits[i] = result.NewHit(mt.Item, norm[i])
		}
		res.ByModality.Set(m, hits)
	}

	res.ByPage = fusePages(&res.ByModality, w, topK)
	return res, nil
}

// SubstringEngine is the degraded strategy used when no similarity backend is
// available: occurrences of the lowercased query per word of text, text modality only.
type SubstringEngine struct{}

// NewSubstringEngine creates the degraded strategy.
func NewSubstringEngine() *SubstringEngine { return &SubstringEngine{} }

// Mode implements Engine.
func (e *SubstringEngine) Mode() result.Mode { return result.ModeSubstring }

// Backend implements Engine. Indexes are loaded without vectors.
func (e *SubstringEngine) Backend() index.Backend { return nil }

// Prepare implements Engine. No model calls are made.
func (e *SubstringEngine) Prepare(_ context.Context, text string) (Query, error) {
	return Query{Text: text}, nil
}

// Execute scans the text items. Weights are reported as 1/1/1 whatever was requested,
// so a caller can tell the degraded mode apart.
func (e *SubstringEngine) Execute(
	ctx context.Context, ix Indexes, q Query, topK int, _ result.Weights,
) (result.Result, error) {
	res := result.Empty(result.UniformWeights(), result.ModeSubstring)
	needle := strings.ToLower(q.Text)
	if needle == "" {
		return res, nil
	}

	var hits []result.Hit
	for _, item := range ix.Text.Items() {
		if err := ctx.Err(); err != nil {
			return result.Result{}, err
		}
		text := strings.ToLower(item.Text)
		n := strings.Count(text, needle)
		if n == 0 {
			continue
		}
		words := len(strings.Fields(text))
		if words == 0 {
			continue
		}
		hits = append(hits, result.NewHit(item, float64(n)/float64(words)))
	}

	sortHits(hits)
	if hits = truncate(hits, topK); hits != nil {
		res.ByModality.Text = hits
	}
	return res, nil
}
