package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kilianp07/gridrepair/api/runs"
	"github.com/kilianp07/gridrepair/infra/logger"
	"github.com/kilianp07/gridrepair/infra/metrics"
	"github.com/kilianp07/gridrepair/infra/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	defer st.Close()

	mux := metrics.NewMux(prometheus.DefaultGatherer)
	runs.Register(mux, st, cfg.API.Token)
	logger.New("serve-command").Infof("listening on %s", cfg.API.Listen)
	return metrics.Serve(ctx, cfg.API.Listen, mux)
}
