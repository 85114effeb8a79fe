package metrics

import "errors"

// MultiSink fans plan records out to multiple sinks.
type MultiSink struct {
	Sinks []PlanSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PlanSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordPlan(ev PlanEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPlan(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPhases forwards phase events to the sinks that support them.
func (m *MultiSink) RecordPhases(evs []PhaseEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PhaseRecorder); ok {
			if err := rec.RecordPhases(evs); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordStage forwards stage timings to the sinks that support them.
func (m *MultiSink) RecordStage(st StageTiming) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			if err := rec.RecordStage(st); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
