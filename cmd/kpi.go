package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridrepair/app"
	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/kpi"
	"github.com/kilianp07/gridrepair/pkg/export"
)

var kpiCSV bool

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Print the baseline indicators of the damaged network",
	RunE:  runKPI,
}

func init() {
	kpiCmd.Flags().BoolVar(&kpiCSV, "csv", false, "print the per line type table as CSV")
	rootCmd.AddCommand(kpiCmd)
}

func runKPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ds, err := app.Ingest(cfg.Inputs)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	enriched := costs.Enrich(ds.Rows, cfg.Costs)
	b := kpi.Compute(enriched)
	if kpiCSV {
		return export.WriteCSV(cmd.OutOrStdout(), export.KindsTable(b))
	}
	return export.WriteJSON(cmd.OutOrStdout(), struct {
		kpi.Baseline
		UnknownKinds map[string]int `json:"unknown_kinds,omitempty"`
	}{b, enriched.UnknownKinds})
}
