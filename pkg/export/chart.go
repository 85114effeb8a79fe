package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridrepair/core/workorder"
)

// WritePhaseChart renders an HTML page with one bar per phase cost and the
// cumulative cost share as a line.
func WritePhaseChart(w io.Writer, phases []workorder.PhaseSummary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Repair phases", Subtitle: "cost per phase and cumulative share"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Phase"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cost (EUR)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	cost := make([]float64, len(phases))
	for i, p := range phases {
		cost[i] = p.Cost
	}
	cum := make([]float64, len(cost))
	if len(cost) > 0 {
		floats.CumSum(cum, cost)
	}
	total := 0.0
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}

	xAxis := make([]string, len(phases))
	bars := make([]opts.BarData, len(phases))
	share := make([]opts.LineData, len(phases))
	for i, p := range phases {
		xAxis[i] = "P" + strconv.Itoa(p.Phase)
		bars[i] = opts.BarData{Value: p.Cost, Name: fmt.Sprintf("%d tasks, %.1f h", p.Tasks, p.TimeH)}
		pct := 0.0
		if total > 0 {
			pct = cum[i] / total * 100
		}
		share[i] = opts.LineData{Value: pct}
	}
	bar.SetXAxis(xAxis).AddSeries("Cost", bars)

	line := charts.NewLine()
	line.SetXAxis(xAxis).AddSeries("Cumulative %", share)
	bar.Overlap(line)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
