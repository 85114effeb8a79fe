package model

import "strings"

// SegmentState is the logical repair state of an infrastructure segment.
type SegmentState int

const (
	StateNeedsRepair SegmentState = iota
	StateIntact
)

// IntactMarker is the state marker used by network sheets for segments that
// need no work.
const IntactMarker = "infra_intacte"

// ParseSegmentState maps a raw state marker to a SegmentState. Only the
// intact markers are recognised; anything else needs repair.
func ParseSegmentState(s string) SegmentState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case IntactMarker, "intact", "intacte":
		return StateIntact
	default:
		return StateNeedsRepair
	}
}

// String returns the marker written to exports.
func (s SegmentState) String() string {
	if s == StateIntact {
		return "intact"
	}
	return "needs_repair"
}

// InfraSegment is a physical line section feeding one or more buildings.
type InfraSegment struct {
	ID       string
	Length   float64 // meters
	State    SegmentState
	Houses   int    // houses served through this segment, summed over buildings
	Kind     string // normalized line type (aerien, semi-aerien, fourreau)
	Repaired bool
}

// Repair marks the segment repaired and intact. It reports whether the call
// changed the segment; repairing twice is a no-op.
func (s *InfraSegment) Repair() bool {
	if s.Repaired {
		return false
	}
	s.Repaired = true
	s.State = StateIntact
	return true
}

// NeedsWork reports whether the segment still has to be repaired.
func (s *InfraSegment) NeedsWork() bool {
	return !s.Repaired && s.State != StateIntact
}

// Difficulty is the segment length divided by the houses it serves (min 1).
func (s *InfraSegment) Difficulty() float64 {
	houses := s.Houses
	if houses < 1 {
		houses = 1
	}
	return s.Length / float64(houses)
}
