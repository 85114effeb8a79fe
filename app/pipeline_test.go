package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridrepair/config"
	"github.com/kilianp07/gridrepair/core/events"
	"github.com/kilianp07/gridrepair/core/factory"
	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/core/workorder"
	"github.com/kilianp07/gridrepair/infra/ingest"
	"github.com/kilianp07/gridrepair/infra/mqtt"
	"github.com/kilianp07/gridrepair/infra/store"
)

const networkCSV = `infra_id;id_batiment;longueur;infra_type;type_infra;nb_maisons
S1;H;10;a_remplacer;fourreau;1
S2;B1;20;a_remplacer;aerien;4
S2;B2;20;a_remplacer;aerien;2
S3;B2;5;infra_intacte;aerien;2
S4;B3;8;infra_intacte;aerien;3
S5;B3;0;a_remplacer;aerien;3
`

const buildingsCSV = `id_batiment;nb_maisons;type_batiment
H;1;hopital
B1;4;habitation
B2;2;habitation
B3;3;ecole
`

type recordingSink struct {
	mu     sync.Mutex
	plans  []coremetrics.PlanEvent
	phases []coremetrics.PhaseEvent
	stages []coremetrics.StageTiming
}

func (r *recordingSink) RecordPlan(ev coremetrics.PlanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, ev)
	return nil
}

func (r *recordingSink) RecordPhases(evs []coremetrics.PhaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, evs...)
	return nil
}

func (r *recordingSink) RecordStage(st coremetrics.StageTiming) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, st)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	network := filepath.Join(dir, "reseau.csv")
	buildings := filepath.Join(dir, "batiments.csv")
	require.NoError(t, os.WriteFile(network, []byte(networkCSV), 0o644))
	require.NoError(t, os.WriteFile(buildings, []byte(buildingsCSV), 0o644))

	stamp := false
	cfg := &config.Config{
		Inputs: config.InputsConfig{Network: network, Buildings: buildings},
		Output: config.OutputConfig{
			StagingDir: filepath.Join(dir, "staging"),
			OutputsDir: filepath.Join(dir, "outputs"),
			Timestamp:  &stamp,
			Chart:      true,
		},
		Store: factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": filepath.Join(dir, "runs.jsonl")}},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	sink := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	p, err := New(cfg, WithSink(sink), WithClient(pub))
	require.NoError(t, err)

	sub := p.Bus().Subscribe()
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ingest.Report{NetworkRows: 6, DroppedRows: 1, Buildings: 4, Hospitals: 1}, res.Report)

	require.Len(t, res.Steps, 3)
	assert.Equal(t, "B3", res.Steps[0].BuildingID)
	assert.Equal(t, 0, res.Steps[0].Step)
	assert.Equal(t, "B1", res.Steps[1].BuildingID)
	assert.Equal(t, []string{"S2"}, res.Steps[1].RepairedSegments)
	assert.Equal(t, "H", res.Steps[2].BuildingID)

	orders := res.Schedule.Orders
	require.Len(t, orders, 3)
	assert.Equal(t, "S1", orders[0].SegmentID)
	assert.Equal(t, 0, orders[0].Phase)
	assert.Equal(t, 2, orders[1].Phase)
	assert.Equal(t, "B2", orders[2].BuildingID)
	assert.Equal(t, workorder.UnplannedRank, orders[2].PlanOrder)
	assert.Equal(t, 4, orders[2].Phase)
	assert.InDelta(t, 1.0, orders[2].PctCumAll, 1e-9)

	assert.InDelta(t, 12.5, res.Feasibility.NeededHours, 1e-9)
	assert.InDelta(t, 16, res.Feasibility.TargetHours, 1e-9)
	assert.True(t, res.Feasibility.MarginOK)

	for _, name := range []string{NameNetwork, NameRowsBase, NameBuildings, NameKinds, NameBaseline} {
		require.FileExists(t, res.Staged[name])
	}
	for _, name := range []string{NameToRepair, NameOK, NamePlan, NameOrders, NamePhases, NameFeasibility, NameChart} {
		require.FileExists(t, res.Outputs[name])
	}
	assert.Equal(t, filepath.Join(cfg.Output.OutputsDir, "work_orders.csv"), res.Outputs[NameOrders])

	require.Len(t, pub.Orders, 3)
	require.Len(t, pub.Summaries, 1)
	assert.Equal(t, res.RunID, pub.Summaries[0].RunID)
	require.NotNil(t, res.Dispatch)
	assert.Equal(t, 3, len(res.Dispatch.Sent))

	require.Len(t, sink.plans, 1)
	ev := sink.plans[0]
	assert.Equal(t, 4, ev.Buildings)
	assert.Equal(t, 2, ev.SegmentsRepaired)
	assert.Equal(t, 7, ev.HousesRestored)
	assert.Equal(t, 3, ev.Orders)
	assert.Len(t, sink.phases, 3)

	rec, err := store.Latest(context.Background(), p.Store())
	require.NoError(t, err)
	assert.Equal(t, res.RunID, rec.ID)
	assert.Len(t, rec.Orders, 3)
	assert.Equal(t, cfg.Inputs.Network, rec.Inputs["network"])

	var stages []string
	for len(sub) > 0 {
		e := <-sub
		assert.NoError(t, e.Err)
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []string{
		events.StageIngest, events.StageEnrich, events.StageGraph, events.StagePlan,
		events.StageOrders, events.StageExport, events.StageStore, events.StagePublish,
	}, stages)
	require.NoError(t, p.Close())
}

func TestPipelineDeterministic(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, WithSink(coremetrics.NopSink{}), WithStore(store.NopStore{}))
	require.NoError(t, err)
	defer p.Close()

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, first.Schedule, second.Schedule)
}

func TestPipelineStampedNames(t *testing.T) {
	cfg := testConfig(t)
	stamp := true
	cfg.Output.Timestamp = &stamp
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p, err := New(cfg, WithSink(coremetrics.NopSink{}), WithStore(store.NopStore{}), WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	defer p.Close()

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.OutputsDir, "plan_glouton_2024-01-02T03-04-05.csv"), res.Outputs[NamePlan])
}

func TestPipelineIngestFailure(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Inputs.Buildings, []byte("id_batiment;nb_maisons;type_batiment\nH;1;hopital\n"), 0o644))
	sink := &recordingSink{}
	p, err := New(cfg, WithSink(sink), WithStore(store.NopStore{}))
	require.NoError(t, err)
	defer p.Close()

	sub := p.Bus().Subscribe()
	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrMissingBuilding))
	assert.Empty(t, sink.plans)

	e := <-sub
	assert.Equal(t, events.StageIngest, e.Stage)
	assert.Equal(t, "error", e.Status())
}

func TestPipelineCancelled(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, WithSink(coremetrics.NopSink{}), WithStore(store.NopStore{}))
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineDispatchFailureKeepsRun(t *testing.T) {
	cfg := testConfig(t)
	pub := mqtt.NewMockPublisher()
	pub.FailSegments["S1"] = true
	p, err := New(cfg, WithSink(coremetrics.NopSink{}), WithStore(store.NopStore{}), WithClient(pub))
	require.NoError(t, err)
	defer p.Close()

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Dispatch)
	assert.Len(t, res.Dispatch.Sent, 2)
	assert.Contains(t, res.Dispatch.Failed, "H/S1")
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
