package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/gridrepair/core/model"
)

var (
	// ErrUnknownBuilding is returned when a building id is not part of the graph.
	ErrUnknownBuilding = errors.New("unknown building")
	// ErrUnknownSegment is returned when a segment id is not part of the graph.
	ErrUnknownSegment = errors.New("unknown segment")
	// ErrOrphanBuilding is returned when a reference building has no network row.
	ErrOrphanBuilding = errors.New("building has no network rows")
	// ErrDuplicateBuilding is returned when the reference table repeats an id.
	ErrDuplicateBuilding = errors.New("duplicate building")
	// ErrEmptyID is returned for rows without a segment or building id.
	ErrEmptyID = errors.New("empty id")
)

// Graph is the building/segment dependency graph.
type Graph struct {
	segments  map[string]*model.InfraSegment
	buildings map[string]*model.Building
	damaged   map[string]bool     // segments that needed repair when built
	zero      []string            // buildings fully intact when built, sorted
	users     map[string][]string // segment id -> dependent building ids
}

// Build constructs the graph from the cleaned network rows and the building
// reference table. Every building referenced by a row must exist in refs and
// every reference building must appear in at least one row.
func Build(rows []model.NetworkRow, refs []model.BuildingRef) (*Graph, error) {
	g := &Graph{
		segments:  make(map[string]*model.InfraSegment),
		buildings: make(map[string]*model.Building, len(refs)),
		damaged:   make(map[string]bool),
		users:     make(map[string][]string),
	}

	for _, r := range refs {
		if r.ID == "" {
			return nil, fmt.Errorf("building reference: %w", ErrEmptyID)
		}
		if _, ok := g.buildings[r.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBuilding, r.ID)
		}
		cat := r.Category
		if cat == "" {
			cat = model.CategoryResidential
		}
		g.buildings[r.ID] = &model.Building{ID: r.ID, Houses: r.Houses, Category: cat}
	}

	linked := make(map[[2]string]bool, len(rows))
	for i, row := range rows {
		if row.SegmentID == "" || row.BuildingID == "" {
			return nil, fmt.Errorf("network row %d: %w", i, ErrEmptyID)
		}
		b, ok := g.buildings[row.BuildingID]
		if !ok {
			return nil, fmt.Errorf("network row %d: %w: %s", i, ErrUnknownBuilding, row.BuildingID)
		}
		seg, ok := g.segments[row.SegmentID]
		if !ok {
			// first observed row wins for length, state and kind
			seg = &model.InfraSegment{
				ID:     row.SegmentID,
				Length: row.Length,
				State:  model.ParseSegmentState(row.State),
				Kind:   row.Kind,
			}
			g.segments[row.SegmentID] = seg
			if seg.State != model.StateIntact {
				g.damaged[seg.ID] = true
			}
		}
		seg.Houses += row.Houses

		key := [2]string{row.BuildingID, row.SegmentID}
		if !linked[key] {
			linked[key] = true
			b.Segments = append(b.Segments, row.SegmentID)
			g.users[row.SegmentID] = append(g.users[row.SegmentID], row.BuildingID)
		}
	}

	for _, id := range g.BuildingIDs() {
		if len(g.buildings[id].Segments) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrOrphanBuilding, id)
		}
		if g.allIntact(g.buildings[id]) {
			g.zero = append(g.zero, id)
		}
	}
	return g, nil
}

// Building returns the building with the given id.
func (g *Graph) Building(id string) (*model.Building, error) {
	b, ok := g.buildings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	return b, nil
}

// Segment returns the segment with the given id.
func (g *Graph) Segment(id string) (*model.InfraSegment, error) {
	s, ok := g.segments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSegment, id)
	}
	return s, nil
}

// BuildingIDs returns all building ids in ascending order.
func (g *Graph) BuildingIDs() []string {
	ids := make([]string, 0, len(g.buildings))
	for id := range g.buildings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SegmentIDs returns all segment ids in ascending order.
func (g *Graph) SegmentIDs() []string {
	ids := make([]string, 0, len(g.segments))
	for id := range g.segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependents returns the ids of the buildings fed by the segment, in the
// order they were linked.
func (g *Graph) Dependents(segmentID string) []string {
	return g.users[segmentID]
}

// Damaged returns the sorted ids of segments that needed repair when the
// graph was built, whatever their current state.
func (g *Graph) Damaged() []string {
	ids := make([]string, 0, len(g.damaged))
	for id := range g.damaged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Difficulty sums the difficulty of the building's segments that still need
// work, using the current segment states.
func (g *Graph) Difficulty(id string) (float64, error) {
	b, err := g.Building(id)
	if err != nil {
		return 0, err
	}
	var d float64
	for _, sid := range b.Segments {
		if s := g.segments[sid]; s.NeedsWork() {
			d += s.Difficulty()
		}
	}
	return d, nil
}

// Pending returns the ids of the building's segments that still need work.
func (g *Graph) Pending(id string) ([]string, error) {
	b, err := g.Building(id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, sid := range b.Segments {
		if g.segments[sid].NeedsWork() {
			out = append(out, sid)
		}
	}
	return out, nil
}

// ZeroRepair returns the sorted ids of buildings whose segments were all
// intact when the graph was built. Repairs made afterwards do not add to it.
func (g *Graph) ZeroRepair() []string {
	return append([]string(nil), g.zero...)
}

// Impacted returns the sorted ids of buildings with at least one segment not
// in the intact state.
func (g *Graph) Impacted() []string {
	var out []string
	for _, id := range g.BuildingIDs() {
		if !g.allIntact(g.buildings[id]) {
			out = append(out, id)
		}
	}
	return out
}

// RepairBuilding repairs every pending segment of the building and returns
// the ids that were actually repaired by this call.
func (g *Graph) RepairBuilding(id string) ([]string, error) {
	b, err := g.Building(id)
	if err != nil {
		return nil, err
	}
	repaired := []string{}
	for _, sid := range b.Segments {
		s := g.segments[sid]
		if s.NeedsWork() && s.Repair() {
			repaired = append(repaired, sid)
		}
	}
	return repaired, nil
}

func (g *Graph) allIntact(b *model.Building) bool {
	for _, sid := range b.Segments {
		if g.segments[sid].State != model.StateIntact {
			return false
		}
	}
	return true
}
