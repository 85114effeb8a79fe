package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kilianp07/gridrepair/app"
	coremon "github.com/kilianp07/gridrepair/core/monitoring"
	"github.com/kilianp07/gridrepair/infra/logger"
	"github.com/kilianp07/gridrepair/infra/metrics"
	"github.com/kilianp07/gridrepair/infra/mqtt"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan repairs and write the work orders",
	RunE:  runPipeline,
}

var serveMetrics bool

func init() {
	runCmd.Flags().BoolVar(&serveMetrics, "serve", false, "keep serving /metrics after the run until interrupted")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flush := initMonitoring(cfg)
	defer flush()
	defer coremon.Recover()
	logg := logger.NewWithLevel("main", cfg.Logging.Level)

	var opts []app.Option
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		defer client.Disconnect()
		opts = append(opts, app.WithClient(client))
	}
	p, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logg.Errorf("pipeline close: %v", err)
		}
	}()

	collected := metrics.StartStageCollector(ctx, p.Bus(), p.Sink())
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.Listen, prometheus.DefaultGatherer); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}

	res, err := p.Run(ctx)
	p.Bus().Close()
	<-collected
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", res.RunID)
	names := make([]string, 0, len(res.Outputs))
	for name := range res.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %s\n", name, res.Outputs[name])
	}
	f := res.Feasibility
	fmt.Fprintf(out, "hospital: needed %.2f h, target %.2f h, margin ok %v\n", f.NeededHours, f.TargetHours, f.MarginOK)

	if serveMetrics && cfg.Metrics.Listen != "" {
		logg.Infof("serving metrics on %s until interrupted", cfg.Metrics.Listen)
		<-ctx.Done()
	}
	return nil
}
