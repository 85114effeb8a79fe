// Package metrics defines the sinks that record planning runs for
// observability. A PlanSink receives one PlanEvent per run; sinks that also
// implement PhaseRecorder or StageRecorder get per-phase figures and stage
// timings. Sinks are built from configuration through the factory registry
// and combined with NewMultiSink when several are configured.
package metrics
