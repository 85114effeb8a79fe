package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	coremqtt "github.com/kilianp07/gridrepair/core/mqtt"
	"github.com/kilianp07/gridrepair/core/workorder"
	"github.com/kilianp07/gridrepair/infra/logger"
	"github.com/kilianp07/gridrepair/infra/mqtt"
	"github.com/kilianp07/gridrepair/infra/store"
)

var publishRunID string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the work orders of a stored run to the crews",
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRunID, "run", "", "run id, latest run when empty")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flush := initMonitoring(cfg)
	defer flush()
	logg := logger.NewWithLevel("publish-command", cfg.Logging.Level)

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	defer st.Close()
	ctx := context.Background()
	var rec store.RunRecord
	if publishRunID == "" {
		rec, err = store.Latest(ctx, st)
	} else {
		rec, err = store.Get(ctx, st, publishRunID)
	}
	if err != nil {
		return err
	}

	mqttCfg := cfg.MQTT
	mqttCfg.Enabled = true
	if err := mqttCfg.Validate(); err != nil {
		return err
	}
	client, err := mqtt.NewPahoClient(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	sched := workorder.Schedule{Orders: rec.Orders, Phases: rec.Phases, Feasibility: rec.Feasibility}
	rep, err := coremqtt.Dispatch(client, rec.ID, sched, client.AckTimeout())
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d orders sent, %d failed, %d acked\n", rec.ID, len(rep.Sent), len(rep.Failed), rep.Acked)
	if err != nil {
		logg.Errorf("dispatch: %v", err)
		return fmt.Errorf("dispatch encountered errors")
	}
	return nil
}
