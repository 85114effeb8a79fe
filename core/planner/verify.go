package planner

import (
	"errors"
	"fmt"

	"github.com/kilianp07/gridrepair/core/graph"
	"github.com/kilianp07/gridrepair/core/model"
)

// ErrIncompletePlan is returned by Verify when steps do not cover every
// damaged segment and impacted building exactly once.
var ErrIncompletePlan = errors.New("incomplete plan")

// Verify checks a plan produced on g: each damaged segment is repaired in
// exactly one step and ends up intact, and no building appears twice.
// Impacted buildings whose segments were all repaired through earlier steps
// have no step of their own.
func Verify(steps []model.RepairStep, g *graph.Graph) error {
	if g == nil {
		return ErrNilGraph
	}
	buildings := make(map[string]int, len(steps))
	segments := make(map[string]int)
	for _, s := range steps {
		buildings[s.BuildingID]++
		for _, sid := range s.RepairedSegments {
			segments[sid]++
		}
	}
	for id, n := range buildings {
		if n > 1 {
			return fmt.Errorf("%w: building %s appears %d times", ErrIncompletePlan, id, n)
		}
	}
	for _, id := range g.ZeroRepair() {
		if buildings[id] != 1 {
			return fmt.Errorf("%w: building %s missing from step 0", ErrIncompletePlan, id)
		}
	}
	damaged := g.Damaged()
	for _, sid := range damaged {
		if n := segments[sid]; n != 1 {
			return fmt.Errorf("%w: segment %s repaired %d times", ErrIncompletePlan, sid, n)
		}
		s, err := g.Segment(sid)
		if err != nil {
			return err
		}
		if !s.Repaired || s.State != model.StateIntact {
			return fmt.Errorf("%w: segment %s left unrepaired", ErrIncompletePlan, sid)
		}
	}
	if len(segments) != len(damaged) {
		return fmt.Errorf("%w: %d segments repaired, %d damaged", ErrIncompletePlan, len(segments), len(damaged))
	}
	return nil
}
