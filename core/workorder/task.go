package workorder

import (
	"errors"
	"fmt"
	"math"
)

// UnplannedRank is the plan order given to tasks whose building has no step
// in the greedy plan; they sort after every planned building.
const UnplannedRank = math.MaxInt32

// Task is one (building, segment) repair with its cost and time figures.
type Task struct {
	BuildingID   string  `json:"building_id"`
	SegmentID    string  `json:"segment_id"`
	Kind         string  `json:"kind"`
	Length       float64 `json:"length"`
	Critical     bool    `json:"critical"`
	ManHours     float64 `json:"man_hours"`
	TimeTotalH   float64 `json:"time_total_h"`
	MaterialCost float64 `json:"material_cost"`
	LaborCost    float64 `json:"labor_cost"`
	CostTotal    float64 `json:"cost_total"`
	PlanOrder    int     `json:"plan_order"`
	Phase        int     `json:"phase"`
	CostCum      float64 `json:"cost_cum"`
	TimeCumH     float64 `json:"time_cum_h"`
	PctCumAll    float64 `json:"pct_cum_all"`
}

// PhaseSummary aggregates the tasks of one phase.
type PhaseSummary struct {
	Phase int     `json:"phase"`
	Cost  float64 `json:"cost_phase"`
	TimeH float64 `json:"time_phase_h"`
	Tasks int     `json:"tasks"`
}

// ErrInvalidThresholds is returned for thresholds that are not increasing
// shares within (0,1].
var ErrInvalidThresholds = errors.New("invalid phase thresholds")

// Thresholds are the cumulative cost shares closing phases 1, 2 and 3.
// Everything above Phase3 goes to phase 4.
type Thresholds struct {
	Phase1 float64 `json:"phase1" yaml:"phase1"`
	Phase2 float64 `json:"phase2" yaml:"phase2"`
	Phase3 float64 `json:"phase3" yaml:"phase3"`
}

// DefaultThresholds returns the 40/20/20/20 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Phase1: 0.40, Phase2: 0.60, Phase3: 0.80}
}

// SetDefaults fills a zero value with the default split.
func (t *Thresholds) SetDefaults() {
	if *t == (Thresholds{}) {
		*t = DefaultThresholds()
	}
}

// Validate checks 0 < Phase1 <= Phase2 <= Phase3 <= 1.
func (t Thresholds) Validate() error {
	if t.Phase1 <= 0 || t.Phase1 > t.Phase2 || t.Phase2 > t.Phase3 || t.Phase3 > 1 {
		return fmt.Errorf("%w: %v/%v/%v", ErrInvalidThresholds, t.Phase1, t.Phase2, t.Phase3)
	}
	return nil
}

// Phase maps a cumulative cost share to a phase in 1..4. Boundary values
// belong to the lower phase.
func (t Thresholds) Phase(share float64) int {
	switch {
	case share <= t.Phase1:
		return 1
	case share <= t.Phase2:
		return 2
	case share <= t.Phase3:
		return 3
	default:
		return 4
	}
}

// RankTasks sets PlanOrder from the building order of the greedy plan:
// critical tasks get 0, planned buildings their 1-based position and the
// others UnplannedRank.
func RankTasks(tasks []Task, order []string) {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := rank[id]; !ok {
			rank[id] = i + 1
		}
	}
	for i := range tasks {
		switch r, ok := rank[tasks[i].BuildingID]; {
		case tasks[i].Critical:
			tasks[i].PlanOrder = 0
		case ok:
			tasks[i].PlanOrder = r
		default:
			tasks[i].PlanOrder = UnplannedRank
		}
	}
}
