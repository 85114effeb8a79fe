package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
)

// PromSink exposes the latest planning run as Prometheus gauges.
type PromSink struct {
	runs          prometheus.Counter
	buildings     prometheus.Gauge
	steps         prometheus.Gauge
	segments      prometheus.Gauge
	houses        prometheus.Gauge
	orders        prometheus.Gauge
	cost          prometheus.Gauge
	unknownKinds  prometheus.Gauge
	neededHours   prometheus.Gauge
	targetHours   prometheus.Gauge
	marginOK      prometheus.Gauge
	phaseCost     *prometheus.GaugeVec
	phaseTime     *prometheus.GaugeVec
	phaseTasks    *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
}

// NewPromSink registers the plan metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}
	phaseVec := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"phase"})
	}
	s := &PromSink{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repair_plan_runs_total",
			Help: "Number of planning runs recorded",
		}),
		buildings:    gauge("repair_plan_buildings", "Buildings in the last plan"),
		steps:        gauge("repair_plan_steps", "Repair steps in the last plan"),
		segments:     gauge("repair_plan_segments_repaired", "Segments repaired by the last plan"),
		houses:       gauge("repair_plan_houses_restored", "Houses restored by the last plan"),
		orders:       gauge("repair_plan_work_orders", "Work orders in the last plan"),
		cost:         gauge("repair_plan_cost_eur", "Total repair cost of the last plan"),
		unknownKinds: gauge("repair_plan_unknown_kind_rows", "Rows whose line type has no cost entry"),
		neededHours:  gauge("repair_hospital_needed_hours", "Hours needed to restore critical facilities"),
		targetHours:  gauge("repair_hospital_target_hours", "Generator hours available after margin"),
		marginOK:     gauge("repair_hospital_margin_ok", "1 when critical work fits the generator budget"),
		phaseCost:    phaseVec("repair_phase_cost_eur", "Cost of each work-order phase"),
		phaseTime:    phaseVec("repair_phase_time_hours", "Duration of each work-order phase"),
		phaseTasks:   phaseVec("repair_phase_tasks", "Tasks in each work-order phase"),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repair_pipeline_stage_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
	}

	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	for _, g := range []*prometheus.Gauge{
		&s.buildings, &s.steps, &s.segments, &s.houses, &s.orders, &s.cost,
		&s.unknownKinds, &s.neededHours, &s.targetHours, &s.marginOK,
	} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	for _, v := range []**prometheus.GaugeVec{&s.phaseCost, &s.phaseTime, &s.phaseTasks} {
		if *v, err = register(reg, *v); err != nil {
			return nil, err
		}
	}
	if s.stageDuration, err = register(reg, s.stageDuration); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlan sets the run gauges.
func (s *PromSink) RecordPlan(ev coremetrics.PlanEvent) error {
	s.runs.Inc()
	s.buildings.Set(float64(ev.Buildings))
	s.steps.Set(float64(ev.Steps))
	s.segments.Set(float64(ev.SegmentsRepaired))
	s.houses.Set(float64(ev.HousesRestored))
	s.orders.Set(float64(ev.Orders))
	s.cost.Set(ev.TotalCost)
	s.unknownKinds.Set(float64(ev.UnknownKinds))
	s.neededHours.Set(ev.Feasibility.NeededHours)
	s.targetHours.Set(ev.Feasibility.TargetHours)
	ok := 0.0
	if ev.Feasibility.MarginOK {
		ok = 1
	}
	s.marginOK.Set(ok)
	return nil
}

// RecordPhases replaces the phase gauges with the given phases.
func (s *PromSink) RecordPhases(evs []coremetrics.PhaseEvent) error {
	s.phaseCost.Reset()
	s.phaseTime.Reset()
	s.phaseTasks.Reset()
	for _, ev := range evs {
		p := strconv.Itoa(ev.Summary.Phase)
		s.phaseCost.WithLabelValues(p).Set(ev.Summary.Cost)
		s.phaseTime.WithLabelValues(p).Set(ev.Summary.TimeH)
		s.phaseTasks.WithLabelValues(p).Set(float64(ev.Summary.Tasks))
	}
	return nil
}

// RecordStage observes a stage duration.
func (s *PromSink) RecordStage(st coremetrics.StageTiming) error {
	status := "ok"
	if st.Failed {
		status = "error"
	}
	s.stageDuration.WithLabelValues(st.Stage, status).Observe(st.Duration.Seconds())
	return nil
}
