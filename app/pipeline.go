// Package app wires the planner stages into a single run: ingestion, cost
// enrichment, greedy planning, work-order assembly, exports and reporting.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gridrepair/config"
	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/events"
	"github.com/kilianp07/gridrepair/core/graph"
	"github.com/kilianp07/gridrepair/core/kpi"
	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/core/model"
	coremon "github.com/kilianp07/gridrepair/core/monitoring"
	coremqtt "github.com/kilianp07/gridrepair/core/mqtt"
	"github.com/kilianp07/gridrepair/core/planner"
	"github.com/kilianp07/gridrepair/core/workorder"
	"github.com/kilianp07/gridrepair/infra/ingest"
	"github.com/kilianp07/gridrepair/infra/logger"
	_ "github.com/kilianp07/gridrepair/infra/metrics" // metrics sink registrations
	"github.com/kilianp07/gridrepair/infra/store"
	"github.com/kilianp07/gridrepair/internal/eventbus"
)

// Result describes a completed run.
type Result struct {
	RunID       string
	Staged      map[string]string // export name -> path
	Outputs     map[string]string
	Steps       []model.RepairStep
	Schedule    workorder.Schedule
	Baseline    kpi.Baseline
	Report      ingest.Report
	Dispatch    *coremqtt.DispatchReport
	Feasibility workorder.Feasibility
}

// Pipeline runs the planner end to end from a configuration.
type Pipeline struct {
	cfg    *config.Config
	log    logger.Logger
	sink   coremetrics.PlanSink
	store  store.Store
	client coremqtt.Client
	bus    *eventbus.TypedBus[events.StageEvent]
	now    func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithSink sets the metrics sink instead of building it from config.
func WithSink(s coremetrics.PlanSink) Option { return func(p *Pipeline) { p.sink = s } }

// WithStore sets the run store instead of building it from config.
func WithStore(s store.Store) Option { return func(p *Pipeline) { p.store = s } }

// WithClient sets the crew dispatch client. A nil client disables dispatch.
func WithClient(c coremqtt.Client) Option { return func(p *Pipeline) { p.client = c } }

// WithBus publishes stage events on b.
func WithBus(b *eventbus.TypedBus[events.StageEvent]) Option { return func(p *Pipeline) { p.bus = b } }

// WithClock overrides time.Now for run timestamps and file names.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New creates a pipeline. The sink and store come from cfg unless given as
// options. The MQTT client is never created here; see WithClient.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.NewWithLevel("pipeline", cfg.Logging.Level)
	}
	if p.sink == nil {
		sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		p.sink = sink
	}
	if p.store == nil {
		st, err := store.New(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("run store: %w", err)
		}
		p.store = st
	}
	if p.bus == nil {
		p.bus = eventbus.NewTyped[events.StageEvent]()
	}
	return p, nil
}

// Bus returns the stage event bus.
func (p *Pipeline) Bus() *eventbus.TypedBus[events.StageEvent] { return p.bus }

// Sink returns the metrics sink.
func (p *Pipeline) Sink() coremetrics.PlanSink { return p.sink }

// Store returns the run store.
func (p *Pipeline) Store() store.Store { return p.store }

// Close closes the bus and the run store.
func (p *Pipeline) Close() error {
	p.bus.Close()
	return p.store.Close()
}

// stage times fn, publishes the outcome and reports failures to the error
// monitor.
func (p *Pipeline) stage(ctx context.Context, runID, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	p.bus.Publish(events.StageEvent{RunID: runID, Stage: name, Duration: time.Since(start), Err: err})
	if err != nil {
		coremon.CaptureStage(err, name, runID)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.Debugw("stage done", map[string]any{"run_id": runID, "stage": name, "ms": time.Since(start).Milliseconds()})
	return nil
}

// Run executes one planning run.
//
//nolint:gocyclo
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := store.NewRunID()
	at := p.now()
	res := &Result{RunID: runID, Staged: map[string]string{}, Outputs: map[string]string{}}
	log := p.log
	log.Infof("run %s started", runID)

	var ds *ingest.Dataset
	if err := p.stage(ctx, runID, events.StageIngest, func() error {
		var err error
		ds, err = p.ingest()
		return err
	}); err != nil {
		return nil, err
	}
	res.Report = ds.Report
	if ds.Report.DroppedRows > 0 {
		log.Warnf("%d network rows with a non-positive length dropped", ds.Report.DroppedRows)
	}
	if ds.Report.Hospitals != 1 {
		log.Warnf("expected exactly one hospital, found %d", ds.Report.Hospitals)
	}

	var enriched costs.Result
	if err := p.stage(ctx, runID, events.StageEnrich, func() error {
		enriched = costs.Enrich(ds.Rows, p.cfg.Costs)
		res.Baseline = kpi.Compute(enriched)
		return nil
	}); err != nil {
		return nil, err
	}
	for _, k := range enriched.UnknownKindNames() {
		log.Warnf("line type %q missing from cost table, %d rows priced at zero", k, enriched.UnknownKinds[k])
	}

	var g *graph.Graph
	if err := p.stage(ctx, runID, events.StageGraph, func() error {
		var err error
		g, err = graph.Build(enriched.NetworkRows(), ds.Buildings)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, runID, events.StagePlan, func() error {
		steps, err := planner.New(planner.WithLogger(logger.NewWithLevel("planner", p.cfg.Logging.Level))).Plan(g)
		if err != nil {
			return err
		}
		res.Steps = steps
		return planner.Verify(steps, g)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, runID, events.StageOrders, func() error {
		sched, err := workorder.Assemble(enriched.Tasks(), planner.Order(res.Steps), p.cfg.Hospital, p.cfg.Phases)
		res.Schedule = sched
		res.Feasibility = sched.Feasibility
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, runID, events.StageExport, func() error {
		return p.export(res, ds, enriched, at)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, runID, events.StageStore, func() error {
		return p.store.Append(ctx, store.RunRecord{
			ID:           runID,
			Timestamp:    at,
			Inputs:       p.cfg.Inputs.Paths(),
			Steps:        res.Steps,
			Orders:       res.Schedule.Orders,
			Phases:       res.Schedule.Phases,
			Feasibility:  res.Feasibility,
			Baseline:     res.Baseline,
			UnknownKinds: enriched.UnknownKinds,
		})
	}); err != nil {
		return nil, err
	}

	p.record(res, ds, enriched, at)

	if p.client != nil {
		if err := p.stage(ctx, runID, events.StagePublish, func() error {
			rep, err := coremqtt.Dispatch(p.client, runID, res.Schedule, time.Duration(p.cfg.MQTT.AckTimeoutS)*time.Second)
			res.Dispatch = &rep
			return err
		}); err != nil {
			// A failed dispatch does not fail the run.
			log.Errorf("dispatch: %v", err)
		}
	}

	f := res.Feasibility
	if f.MarginOK {
		log.Infof("hospital needs %.2f h, target %.2f h: margin ok", f.NeededHours, f.TargetHours)
	} else {
		log.Warnf("hospital needs %.2f h, target %.2f h: margin exceeded", f.NeededHours, f.TargetHours)
	}
	log.Infof("run %s done: %d steps, %d orders", runID, len(res.Steps), len(res.Schedule.Orders))
	return res, nil
}

func (p *Pipeline) ingest() (*ingest.Dataset, error) { return Ingest(p.cfg.Inputs) }

// Ingest reads the configured tables and cleans them into a dataset.
func Ingest(in config.InputsConfig) (*ingest.Dataset, error) {
	read := func(path string) (*ingest.Table, error) {
		if path == "" {
			return nil, nil
		}
		return ingest.ReadTable(path)
	}
	var tables ingest.Inputs
	var err error
	if tables.Network, err = read(in.Network); err != nil {
		return nil, err
	}
	if tables.Buildings, err = read(in.Buildings); err != nil {
		return nil, err
	}
	if tables.Infra, err = read(in.Infra); err != nil {
		return nil, err
	}
	if tables.Works, err = read(in.Works); err != nil {
		return nil, err
	}
	return ingest.CleanAndJoin(tables)
}

// record pushes the run figures to the metrics sink. Sink errors are logged
// only.
func (p *Pipeline) record(res *Result, ds *ingest.Dataset, enriched costs.Result, at time.Time) {
	houses := 0
	for _, b := range ds.Buildings {
		houses += b.Houses
	}
	repaired := 0
	for _, s := range res.Steps {
		if s.Step == 0 {
			houses -= s.Houses
		}
		repaired += len(s.RepairedSegments)
	}
	var cost float64
	for _, ph := range res.Schedule.Phases {
		cost += ph.Cost
	}
	unknown := 0
	for _, n := range enriched.UnknownKinds {
		unknown += n
	}
	ev := coremetrics.PlanEvent{
		RunID:            res.RunID,
		Buildings:        len(ds.Buildings),
		Steps:            len(res.Steps),
		SegmentsRepaired: repaired,
		HousesRestored:   houses,
		Orders:           len(res.Schedule.Orders),
		TotalCost:        cost,
		UnknownKinds:     unknown,
		Feasibility:      res.Feasibility,
		Time:             at,
	}
	if err := p.sink.RecordPlan(ev); err != nil {
		p.log.Errorf("record plan: %v", err)
	}
	if pr, ok := p.sink.(coremetrics.PhaseRecorder); ok {
		if err := pr.RecordPhases(coremetrics.PhaseEvents(res.RunID, res.Schedule.Phases, at)); err != nil {
			p.log.Errorf("record phases: %v", err)
		}
	}
}
