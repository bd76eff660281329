package search

import (
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
)

// topPagesPerProduct is how many of its own fused pages each product summary carries.
const topPagesPerProduct = 3

type outcome struct {
	manual Manual
	result result.Result
	err    error
}

// merge tags every hit and page with its product, then re-ranks each modality
// and the fused pages globally. Outcomes are merged in catalog order, so equal
// scores keep that order.
func merge(outs []outcome, topK int, threshold float64) result.Multi {
	merged := result.Multi{
		ByModality:           result.ByModality{Text: []result.Hit{}, Tables: []result.Hit{}, Images: []result.Hit{}},
		ByPage:               []result.PageScore{},
		ByProduct:            make(map[string]result.ProductSummary, len(outs)),
		TotalManualsSearched: len(outs),
		Weights:              outs[0].result.Weights,
		Mode:                 outs[0].result.Mode,
	}

	for _, o := range outs {
		p := o.manual.Product
		attr := result.Attribution{ProductName: p.Name, ProductCategory: p.Category, PDFPath: p.PDFPath}

		for _, m := range manual.Modalities() {
			hits := o.result.ByModality.Get(m)
			all := merged.ByModality.Get(m)
			for _, h := range hits {
				h.Attribution = attr
				all = append(all, h)
			}
			merged.ByModality.Set(m, all)
		}

		pages := make([]result.PageScore, len(o.result.ByPage))
		for i, ps := range o.result.ByPage {
			ps.Attribution = attr
			pages[i] = ps
		}
		merged.ByPage = append(merged.ByPage, pages...)

		merged.ByProduct[p.Name] = summarize(p, &o.result.ByModality, pages, threshold)
	}

	for _, m := range manual.Modalities() {
		hits := merged.ByModality.Get(m)
		sortHits(hits)
		merged.ByModality.Set(m, truncate(hits, topK))
	}
	sortPages(merged.ByPage)
	merged.ByPage = truncate(merged.ByPage, topK)

	return merged
}

func summarize(p manual.Product, by *result.ByModality, pages []result.PageScore, threshold float64) result.ProductSummary {
	count := func(hits []result.Hit) int {
		n := 0
		for _, h := range hits {
			if h.Score > threshold {
				n++
			}
		}
		return n
	}
	rc := result.RelevantCounts{
		Text:   count(by.Text),
		Tables: count(by.Tables),
		Images: count(by.Images),
	}
	rc.Total = rc.Text + rc.Tables + rc.Images

	top := make([]result.PageScore, len(truncate(pages, topPagesPerProduct)))
	copy(top, pages)
	return result.ProductSummary{Product: p, RelevantResults: rc, TopPages: top}
}
