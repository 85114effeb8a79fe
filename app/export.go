package app

import (
	"io"
	"time"

	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/kpi"
	"github.com/kilianp07/gridrepair/infra/ingest"
	"github.com/kilianp07/gridrepair/pkg/export"
)

// Export names, without extension or timestamp.
const (
	NameNetwork     = "reseau_sync"
	NameRowsBase    = "infra_agg_baseline"
	NameBuildings   = "bat_agg_baseline"
	NameKinds       = "kpi_by_kind"
	NameBaseline    = "kpi_baseline"
	NameToRepair    = "segments_a_reparer"
	NameOK          = "segments_ok"
	NamePlan        = "plan_glouton"
	NameOrders      = "work_orders"
	NamePhases      = "phases_summary"
	NameFeasibility = "feasibility"
	NameChart       = "phases_chart"
)

type baselineDoc struct {
	RunID        string         `json:"run_id"`
	Report       ingest.Report  `json:"report"`
	Baseline     kpi.Baseline   `json:"baseline"`
	UnknownKinds map[string]int `json:"unknown_kinds,omitempty"`
}

func (p *Pipeline) export(res *Result, ds *ingest.Dataset, enriched costs.Result, at time.Time) error {
	out := p.cfg.Output
	w, err := export.NewWriter(out.StagingDir, out.OutputsDir, out.Stamped())
	if err != nil {
		return err
	}
	w.Now = func() time.Time { return at }

	repair, ok := enriched.Split()
	staged := []struct {
		name  string
		table export.Table
	}{
		{NameNetwork, export.NetworkTable(enriched.NetworkRows())},
		{NameRowsBase, export.RowsTable(enriched.Rows)},
		{NameBuildings, export.BuildingsTable(ds.Buildings)},
		{NameKinds, export.KindsTable(res.Baseline)},
	}
	for _, s := range staged {
		if res.Staged[s.name], err = w.CSV(w.StagingDir, s.name, s.table); err != nil {
			return err
		}
	}
	doc := baselineDoc{RunID: res.RunID, Report: ds.Report, Baseline: res.Baseline, UnknownKinds: enriched.UnknownKinds}
	if res.Staged[NameBaseline], err = w.JSON(w.StagingDir, NameBaseline, doc); err != nil {
		return err
	}

	outputs := []struct {
		name  string
		table export.Table
	}{
		{NameToRepair, export.RowsTable(repair)},
		{NameOK, export.RowsTable(ok)},
		{NamePlan, export.StepsTable(res.Steps)},
		{NameOrders, export.OrdersTable(res.Schedule.Orders)},
		{NamePhases, export.PhasesTable(res.Schedule.Phases)},
	}
	for _, o := range outputs {
		if res.Outputs[o.name], err = w.CSV(w.OutputsDir, o.name, o.table); err != nil {
			return err
		}
	}
	if res.Outputs[NameFeasibility], err = w.JSON(w.OutputsDir, NameFeasibility, res.Feasibility); err != nil {
		return err
	}
	if out.Chart {
		phases := res.Schedule.Phases
		if res.Outputs[NameChart], err = w.File(w.OutputsDir, NameChart, "html", func(dst io.Writer) error {
			return export.WritePhaseChart(dst, phases)
		}); err != nil {
			return err
		}
	}
	return nil
}
