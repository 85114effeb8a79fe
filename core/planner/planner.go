package planner

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/kilianp07/gridrepair/core/graph"
	"github.com/kilianp07/gridrepair/core/logger"
	"github.com/kilianp07/gridrepair/core/model"
)

// ErrNilGraph is returned when Plan is called without a graph.
var ErrNilGraph = errors.New("nil graph")

// Planner computes the greedy repair order.
type Planner struct {
	log logger.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for step traces.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) { p.log = logger.OrNop(l) }
}

// New returns a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{log: logger.Nop{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan runs the greedy loop on g, mutating its segment states. Step 0 holds
// the buildings needing no repair sorted by id; steps 1..N follow selection
// order and record the difficulty as it stood before the step's repairs.
func (p *Planner) Plan(g *graph.Graph) ([]model.RepairStep, error) {
	if g == nil {
		return nil, ErrNilGraph
	}

	var steps []model.RepairStep
	for _, id := range g.ZeroRepair() {
		b, err := g.Building(id)
		if err != nil {
			return nil, err
		}
		steps = append(steps, model.RepairStep{
			Step:             0,
			BuildingID:       b.ID,
			Category:         b.Category,
			Houses:           b.Houses,
			RepairedSegments: []string{},
		})
	}

	versions := make(map[string]int)
	q := &candidateQueue{}
	for _, id := range g.Impacted() {
		d, err := g.Difficulty(id)
		if err != nil {
			return nil, err
		}
		*q = append(*q, candidate{id: id, difficulty: d})
	}
	heap.Init(q)

	step := 0
	for q.Len() > 0 {
		c := heap.Pop(q).(candidate)
		if c.version != versions[c.id] {
			continue
		}
		pending, err := g.Pending(c.id)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			continue
		}
		before, err := g.Difficulty(c.id)
		if err != nil {
			return nil, err
		}
		if before != c.difficulty {
			versions[c.id]++
			heap.Push(q, candidate{id: c.id, difficulty: before, version: versions[c.id]})
			continue
		}

		b, err := g.Building(c.id)
		if err != nil {
			return nil, err
		}
		repaired, err := g.RepairBuilding(c.id)
		if err != nil {
			return nil, err
		}
		step++
		steps = append(steps, model.RepairStep{
			Step:             step,
			BuildingID:       b.ID,
			Category:         b.Category,
			Houses:           b.Houses,
			DifficultyBefore: before,
			RepairedSegments: repaired,
		})
		p.log.Debugw("repair step", map[string]any{
			"step":       step,
			"building":   b.ID,
			"difficulty": before,
			"segments":   len(repaired),
		})

		if err := p.refresh(g, q, versions, c.id, repaired); err != nil {
			return nil, err
		}
	}
	p.log.Infof("greedy plan: %d steps, %d buildings without repair", step, len(steps)-step)
	return steps, nil
}

// refresh re-keys every building fed by a segment repaired in this step.
func (p *Planner) refresh(g *graph.Graph, q *candidateQueue, versions map[string]int, chosen string, repaired []string) error {
	seen := map[string]bool{chosen: true}
	for _, sid := range repaired {
		for _, bid := range g.Dependents(sid) {
			if seen[bid] {
				continue
			}
			seen[bid] = true
			pending, err := g.Pending(bid)
			if err != nil {
				return err
			}
			versions[bid]++
			if len(pending) == 0 {
				continue
			}
			d, err := g.Difficulty(bid)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", bid, err)
			}
			heap.Push(q, candidate{id: bid, difficulty: d, version: versions[bid]})
		}
	}
	return nil
}

// Order returns the building ids of the steps in plan order.
func Order(steps []model.RepairStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.BuildingID
	}
	return out
}
