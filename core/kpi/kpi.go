// Package kpi computes the baseline indicators of a damaged network before
// any planning: length, cost and time per line type.
package kpi

import (
	"sort"

	"github.com/kilianp07/gridrepair/core/costs"
)

// KindTotals aggregates the rows of one line type.
type KindTotals struct {
	Kind   string  `json:"kind"`
	Length float64 `json:"length_m"`
	Cost   float64 `json:"cost"`
	TimeH  float64 `json:"time_h"`
	Rows   int     `json:"rows"`
}

// Baseline holds the network-wide indicators.
type Baseline struct {
	TotalLength  float64      `json:"total_length_m"`
	TotalCost    float64      `json:"total_cost"`
	TotalTimeH   float64      `json:"total_time_h"`
	RowsToRepair int          `json:"rows_to_repair"`
	RowsOK       int          `json:"rows_ok"`
	ByKind       []KindTotals `json:"by_kind"`
}

// Compute aggregates enriched rows per line type, sorted by type name.
func Compute(res costs.Result) Baseline {
	idx := map[string]*KindTotals{}
	var b Baseline
	for _, r := range res.Rows {
		kind := r.Kind
		if kind == "" {
			kind = costs.KindUnknown
		}
		kt, ok := idx[kind]
		if !ok {
			kt = &KindTotals{Kind: kind}
			idx[kind] = kt
		}
		kt.Length += r.Length
		kt.Cost += r.CostTotal
		kt.TimeH += r.TimeTotalH
		kt.Rows++
		if r.ToRepair {
			b.RowsToRepair++
		} else {
			b.RowsOK++
		}
	}
	kinds := make([]string, 0, len(idx))
	for k := range idx {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		kt := idx[k]
		b.ByKind = append(b.ByKind, *kt)
		b.TotalLength += kt.Length
		b.TotalCost += kt.Cost
		b.TotalTimeH += kt.TimeH
	}
	return b
}
