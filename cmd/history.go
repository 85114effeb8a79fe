package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridrepair/infra/store"
)

var (
	historyLimit int
	historySince time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored planning runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show, 0 for all")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs newer than this duration")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	defer st.Close()

	q := store.RunQuery{Limit: historyLimit}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	runs, err := st.Query(context.Background(), q)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range runs {
		var cost float64
		for _, p := range r.Phases {
			cost += p.Cost
		}
		fmt.Fprintf(out, "%s  %s  steps=%d orders=%d cost=%.0f margin_ok=%v\n",
			r.Timestamp.Format(time.RFC3339), r.ID, len(r.Steps), len(r.Orders), cost, r.Feasibility.MarginOK)
	}
	return nil
}
