package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/kpi"
	"github.com/kilianp07/gridrepair/core/model"
	"github.com/kilianp07/gridrepair/core/workorder"
)

// Table is a header and its rows, ready for CSV.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteCSV writes t to w.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// StepsTable renders the greedy plan.
func StepsTable(steps []model.RepairStep) Table {
	t := Table{Header: []string{"step", "building_id", "category", "houses", "difficulty_before", "repaired_segments"}}
	for _, s := range steps {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.Step),
			s.BuildingID,
			string(s.Category),
			strconv.Itoa(s.Houses),
			ftoa(s.DifficultyBefore),
			strings.Join(s.RepairedSegments, "|"),
		})
	}
	return t
}

// OrdersTable renders the work orders.
func OrdersTable(tasks []workorder.Task) Table {
	t := Table{Header: []string{
		"phase", "plan_order", "building_id", "segment_id", "kind", "length", "critical",
		"man_hours", "time_total_h", "material_cost", "labor_cost", "cost_total",
		"cost_cum", "time_cum_h", "pct_cum_all",
	}}
	for _, o := range tasks {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(o.Phase),
			strconv.Itoa(o.PlanOrder),
			o.BuildingID,
			o.SegmentID,
			o.Kind,
			ftoa(o.Length),
			btoa(o.Critical),
			ftoa(o.ManHours),
			ftoa(o.TimeTotalH),
			ftoa(o.MaterialCost),
			ftoa(o.LaborCost),
			ftoa(o.CostTotal),
			ftoa(o.CostCum),
			ftoa(o.TimeCumH),
			ftoa(o.PctCumAll),
		})
	}
	return t
}

// PhasesTable renders the phase summaries.
func PhasesTable(phases []workorder.PhaseSummary) Table {
	t := Table{Header: []string{"phase", "cost_phase", "time_phase_h", "tasks"}}
	for _, p := range phases {
		t.Rows = append(t.Rows, []string{strconv.Itoa(p.Phase), ftoa(p.Cost), ftoa(p.TimeH), strconv.Itoa(p.Tasks)})
	}
	return t
}

// RowsTable renders enriched network rows.
func RowsTable(rows []costs.Row) Table {
	t := Table{Header: []string{
		"infra_id", "id_batiment", "type_batiment", "longueur", "infra_type", "type_infra", "nb_maisons",
		"hours_per_m", "cost_per_m", "man_hours", "time_total_h", "material_cost", "labor_cost",
		"cost_total", "critical", "to_repair",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SegmentID,
			r.BuildingID,
			string(r.Category),
			ftoa(r.Length),
			r.State,
			r.Kind,
			strconv.Itoa(r.Houses),
			ftoa(r.HoursPerM),
			ftoa(r.CostPerM),
			ftoa(r.ManHours),
			ftoa(r.TimeTotalH),
			ftoa(r.MaterialCost),
			ftoa(r.LaborCost),
			ftoa(r.CostTotal),
			btoa(r.Critical),
			btoa(r.ToRepair),
		})
	}
	return t
}

// NetworkTable renders cleaned network rows before pricing.
func NetworkTable(rows []model.NetworkRow) Table {
	t := Table{Header: []string{"infra_id", "id_batiment", "longueur", "infra_type", "type_infra", "nb_maisons", "type_batiment"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SegmentID, r.BuildingID, ftoa(r.Length), r.State, r.Kind, strconv.Itoa(r.Houses), string(r.Category),
		})
	}
	return t
}

// BuildingsTable renders the building reference table with its priority
// score.
func BuildingsTable(refs []model.BuildingRef) Table {
	t := Table{Header: []string{"id_batiment", "nb_maisons", "type_batiment", "priority_score"}}
	for _, b := range refs {
		t.Rows = append(t.Rows, []string{b.ID, strconv.Itoa(b.Houses), string(b.Category), ftoa(b.Category.Score())})
	}
	return t
}

// KindsTable renders the per line type baseline.
func KindsTable(b kpi.Baseline) Table {
	t := Table{Header: []string{"kind", "rows", "length_m", "cost", "time_h"}}
	for _, k := range b.ByKind {
		t.Rows = append(t.Rows, []string{k.Kind, strconv.Itoa(k.Rows), ftoa(k.Length), ftoa(k.Cost), ftoa(k.TimeH)})
	}
	return t
}
