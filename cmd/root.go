package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridrepair/config"
	coremon "github.com/kilianp07/gridrepair/core/monitoring"
	"github.com/kilianp07/gridrepair/infra/logger"
	inframon "github.com/kilianp07/gridrepair/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "gridrepair",
	Short:        "Electrical network repair planner",
	SilenceUsage: true,
	RunE:         runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// initMonitoring installs the Sentry monitor and returns its flush func.
func initMonitoring(cfg *config.Config) func() {
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logger.New("main").Errorf("sentry init: %v", err)
		return func() {}
	}
	coremon.Init(mon)
	return func() { coremon.Flush(2 * time.Second) }
}
