package workorder

import (
	"errors"
	"fmt"
	"sort"
)

// feasibilityEpsilon absorbs rounding when comparing hours.
const feasibilityEpsilon = 1e-9

// ErrInvalidBudget is returned for a negative runtime or a margin outside
// [0,1].
var ErrInvalidBudget = errors.New("invalid critical facility budget")

// Budget is the time the critical facility can run on its generator.
type Budget struct {
	GeneratorHours float64 `json:"generator_hours" yaml:"generator_hours"`
	Margin         float64 `json:"time_margin" yaml:"time_margin"`
}

// Target is the generator runtime reduced by the safety margin.
func (b Budget) Target() float64 { return b.GeneratorHours * (1 - b.Margin) }

// Validate checks the budget values.
func (b Budget) Validate() error {
	if b.GeneratorHours < 0 {
		return fmt.Errorf("%w: generator_hours %v", ErrInvalidBudget, b.GeneratorHours)
	}
	if b.Margin < 0 || b.Margin > 1 {
		return fmt.Errorf("%w: time_margin %v", ErrInvalidBudget, b.Margin)
	}
	return nil
}

// Feasibility reports whether critical facility tasks fit in the budget.
type Feasibility struct {
	NeededHours float64 `json:"needed_hours"`
	TargetHours float64 `json:"target_hours"`
	MarginOK    bool    `json:"margin_ok"`
}

// Schedule is the assembled work-order timeline.
type Schedule struct {
	Orders      []Task         `json:"orders"`
	Phases      []PhaseSummary `json:"phases"`
	Feasibility Feasibility    `json:"feasibility"`
}

// Assemble ranks the tasks against the greedy building order, puts the
// critical tasks first by descending cost then time, buckets the rest and
// evaluates the critical facility budget. The budget check never fails the
// call; only invalid inputs do.
func Assemble(tasks []Task, order []string, budget Budget, th Thresholds) (Schedule, error) {
	if err := budget.Validate(); err != nil {
		return Schedule{}, err
	}
	if err := th.Validate(); err != nil {
		return Schedule{}, err
	}

	ranked := make([]Task, len(tasks))
	copy(ranked, tasks)
	RankTasks(ranked, order)

	var crit, rest []Task
	for _, t := range ranked {
		if t.Critical {
			crit = append(crit, t)
		} else {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(crit, func(i, j int) bool {
		a, b := crit[i], crit[j]
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

	orders, phases := Bucket(append(crit, rest...), th)
	return Schedule{
		Orders:      orders,
		Phases:      phases,
		Feasibility: Check(crit, budget),
	}, nil
}

// Check sums the time of the critical tasks and compares it to the budget
// target.
func Check(tasks []Task, budget Budget) Feasibility {
	var needed float64
	for _, t := range tasks {
		if t.Critical {
			needed += t.TimeTotalH
		}
	}
	target := budget.Target()
	return Feasibility{
		NeededHours: needed,
		TargetHours: target,
		MarginOK:    needed <= target+feasibilityEpsilon,
	}
}
