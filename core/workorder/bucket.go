package workorder

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// minTotal guards the grand-total division.
const minTotal = 1e-9

// Bucket assigns phases and cumulative columns. Critical tasks go to phase
// 0; the rest are ordered by plan order, then cost and time descending, and
// phased by cumulative share of their own total cost. A non-positive
// remaining total collapses every task into phase 0.
//
// The returned list is sorted by phase, plan order and critical first, and
// carries running cost, running time and share of the grand total.
func Bucket(tasks []Task, th Thresholds) ([]Task, []PhaseSummary) {
	var crit, rest []Task
	for _, t := range tasks {
		if t.Critical {
			t.Phase = 0
			crit = append(crit, t)
		} else {
			rest = append(rest, t)
		}
	}

	sortRemaining(rest)
	restCost := costs(rest)
	restTotal := floats.Sum(restCost)
	if restTotal <= 0 {
		for i := range rest {
			rest[i].Phase = 0
		}
	} else {
		cum := floats.CumSum(make([]float64, len(restCost)), restCost)
		for i := range rest {
			rest[i].Phase = th.Phase(cum[i] / restTotal)
		}
	}

	out := append(crit, rest...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		if a.PlanOrder != b.PlanOrder {
			return a.PlanOrder < b.PlanOrder
		}
		return a.Critical && !b.Critical
	})
	accumulate(out)
	return out, summarize(out)
}

func sortRemaining(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.PlanOrder != b.PlanOrder {
			return a.PlanOrder < b.PlanOrder
		}
		if a.CostTotal != b.CostTotal {
			return a.CostTotal > b.CostTotal
		}
		if a.TimeTotalH != b.TimeTotalH {
			return a.TimeTotalH > b.TimeTotalH
		}
		if a.BuildingID != b.BuildingID {
			return a.BuildingID < b.BuildingID
		}
		return a.SegmentID < b.SegmentID
	})
}

func costs(ts []Task) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.CostTotal
	}
	return out
}

func times(ts []Task) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.TimeTotalH
	}
	return out
}

func accumulate(ts []Task) {
	if len(ts) == 0 {
		return
	}
	c := costs(ts)
	total := floats.Sum(c)
	if total < minTotal {
		total = minTotal
	}
	costCum := floats.CumSum(make([]float64, len(ts)), c)
	timeCum := floats.CumSum(make([]float64, len(ts)), times(ts))
	for i := range ts {
		ts[i].CostCum = costCum[i]
		ts[i].TimeCumH = timeCum[i]
		ts[i].PctCumAll = costCum[i] / total
	}
}

func summarize(ts []Task) []PhaseSummary {
	var out []PhaseSummary
	for _, t := range ts {
		if len(out) == 0 || out[len(out)-1].Phase != t.Phase {
			out = append(out, PhaseSummary{Phase: t.Phase})
		}
		s := &out[len(out)-1]
		s.Cost += t.CostTotal
		s.TimeH += t.TimeTotalH
		s.Tasks++
	}
	return out
}
