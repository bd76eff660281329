package search

import (
	"sort"

	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
)

// minMax rescales one result set into [0, 1]: subtract the minimum, then divide
// by the shifted maximum if it is positive. A set whose scores are all equal
// (including a single score) collapses to zeros.
func minMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo := scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
	}
	var hi float64
	for i, s := range scores {
		out[i] = s - lo
		hi = max(hi, out[i])
	}
	if hi > 0 {
		for i := range out {
			out[i] /= hi
		}
	}
	return out
}

// fusePages sums weight × normalized score per page over the modalities in
// evaluation order. Pages below 1 are skipped. Sorting is stable, so equal
// scores keep first-contribution order.
func fusePages(by *result.ByModality, w result.Weights, topK int) []result.PageScore {
	acc := make(map[int]float64)
	var order []int
	for _, m := range manual.Modalities() {
		weight := w.For(m)
		for _, h := range by.Get(m) {
			if h.Page < 1 {
				continue
			}
			if _, seen := acc[h.Page]; !seen {
				order = append(order, h.Page)
			}
			acc[h.Page] += h.Score * weight
		}
	}

	pages := make([]result.PageScore, len(order))
	for i, p := range order {
		pages[i] = result.PageScore{Page: p, Score: acc[p]}
	}
	sortPages(pages)
	return truncate(pages, topK)
}

func sortHits(hits []result.Hit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func sortPages(pages []result.PageScore) {
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Score > pages[j].Score })
}

func truncate[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
