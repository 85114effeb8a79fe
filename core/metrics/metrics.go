package metrics

import (
	"time"

	"github.com/kilianp07/gridrepair/core/workorder"
)

// PlanEvent summarizes one planning run.
type PlanEvent struct {
	RunID            string
	Buildings        int
	Steps            int
	SegmentsRepaired int
	HousesRestored   int
	Orders           int
	TotalCost        float64
	UnknownKinds     int
	Feasibility      workorder.Feasibility
	Time             time.Time
}

// PlanSink records planning runs.
type PlanSink interface {
	RecordPlan(ev PlanEvent) error
}

// PhaseEvent carries the figures of one work-order phase.
type PhaseEvent struct {
	RunID   string
	Summary workorder.PhaseSummary
	Time    time.Time
}

// PhaseRecorder records per-phase cost and time.
type PhaseRecorder interface {
	RecordPhases(evs []PhaseEvent) error
}

// StageTiming is the duration of one pipeline stage.
type StageTiming struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Failed   bool
}

// StageRecorder records pipeline stage durations.
type StageRecorder interface {
	RecordStage(st StageTiming) error
}

// PhaseEvents wraps phase summaries for a run.
func PhaseEvents(runID string, phases []workorder.PhaseSummary, at time.Time) []PhaseEvent {
	out := make([]PhaseEvent, len(phases))
	for i, p := range phases {
		out[i] = PhaseEvent{RunID: runID, Summary: p, Time: at}
	}
	return out
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(PlanEvent) error      { return nil }
func (NopSink) RecordPhases([]PhaseEvent) error { return nil }
func (NopSink) RecordStage(StageTiming) error   { return nil }
