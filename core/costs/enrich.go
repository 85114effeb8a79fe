package costs

import (
	"sort"

	"github.com/kilianp07/gridrepair/core/model"
	"github.com/kilianp07/gridrepair/core/workorder"
)

// Row is a network row priced with the cost table.
type Row struct {
	model.NetworkRow
	HoursPerM    float64 `json:"hours_per_m"`
	CostPerM     float64 `json:"cost_per_m"`
	ManHours     float64 `json:"man_hours"`
	TimeTotalH   float64 `json:"time_total_h"`
	MaterialCost float64 `json:"material_cost"`
	LaborCost    float64 `json:"labor_cost"`
	CostTotal    float64 `json:"cost_total"`
	Critical     bool    `json:"critical"`
	ToRepair     bool    `json:"to_repair"`
}

// Result is the outcome of Enrich.
type Result struct {
	Rows []Row
	// UnknownKinds counts rows per line type missing from the table. Those
	// rows are priced at zero and therefore never marked for repair.
	UnknownKinds map[string]int
}

// Enrich prices every row:
//
//	man_hours     = length * hours_per_m
//	time_total_h  = man_hours / crew
//	material_cost = length * cost_per_m
//	labor_cost    = man_hours * hourly_rate
//	cost_total    = material_cost + labor_cost
//
// A row is to repair when its segment is not intact and its cost is positive.
func Enrich(rows []model.NetworkRow, t Table) Result {
	res := Result{Rows: make([]Row, 0, len(rows)), UnknownKinds: map[string]int{}}
	crew := float64(t.Crew())
	hourly := t.HourlyRate()
	for _, nr := range rows {
		r := Row{NetworkRow: nr}
		r.Kind = NormalizeKind(nr.Kind)
		hpm, okH := t.HoursPerM[r.Kind]
		cpm, okC := t.MaterialPerM[r.Kind]
		if !okH || !okC {
			if r.Kind == "" {
				r.Kind = KindUnknown
			}
			res.UnknownKinds[r.Kind]++
			hpm, cpm = 0, 0
		}
		r.HoursPerM = hpm
		r.CostPerM = cpm
		r.ManHours = nr.Length * hpm
		r.TimeTotalH = r.ManHours / crew
		r.MaterialCost = nr.Length * cpm
		r.LaborCost = r.ManHours * hourly
		r.CostTotal = r.MaterialCost + r.LaborCost
		r.Critical = nr.Category.IsCritical()
		r.ToRepair = model.ParseSegmentState(nr.State) != model.StateIntact && r.CostTotal > 0
		res.Rows = append(res.Rows, r)
	}
	return res
}

// Split separates rows to repair from rows needing no work.
func (r Result) Split() (repair, ok []Row) {
	for _, row := range r.Rows {
		if row.ToRepair {
			repair = append(repair, row)
		} else {
			ok = append(ok, row)
		}
	}
	return repair, ok
}

// Tasks returns one repair task per row to repair.
func (r Result) Tasks() []workorder.Task {
	var out []workorder.Task
	for _, row := range r.Rows {
		if !row.ToRepair {
			continue
		}
		out = append(out, workorder.Task{
			BuildingID:   row.BuildingID,
			SegmentID:    row.SegmentID,
			Kind:         row.Kind,
			Length:       row.Length,
			Critical:     row.Critical,
			ManHours:     row.ManHours,
			TimeTotalH:   row.TimeTotalH,
			MaterialCost: row.MaterialCost,
			LaborCost:    row.LaborCost,
			CostTotal:    row.CostTotal,
		})
	}
	return out
}

// UnknownKindNames returns the unknown line types sorted by row count, most
// frequent first.
func (r Result) UnknownKindNames() []string {
	names := make([]string, 0, len(r.UnknownKinds))
	for k := range r.UnknownKinds {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := r.UnknownKinds[names[i]], r.UnknownKinds[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	return names
}

// NetworkRows returns the rows with their normalized line type.
func (r Result) NetworkRows() []model.NetworkRow {
	out := make([]model.NetworkRow, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.NetworkRow
	}
	return out
}
