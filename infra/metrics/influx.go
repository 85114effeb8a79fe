package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/infra/logger"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes planning runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.PlanSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordPlan writes one repair_plan point.
func (s *InfluxSink) RecordPlan(ev coremetrics.PlanEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, planPoint(ev))
}

// RecordPhases writes one repair_phase point per phase in a single batch.
func (s *InfluxSink) RecordPhases(evs []coremetrics.PhaseEvent) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pts := make([]*write.Point, len(evs))
	for i, ev := range evs {
		pts[i] = phasePoint(ev)
	}
	return s.writeAPI.WritePoint(ctx, pts...)
}

// RecordStage writes one pipeline_stage point.
func (s *InfluxSink) RecordStage(st coremetrics.StageTiming) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", st.RunID).
		AddTag("stage", st.Stage).
		AddTag("failed", strconv.FormatBool(st.Failed)).
		AddField("duration_ms", round3(st.Duration.Seconds()*1000)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func planPoint(ev coremetrics.PlanEvent) *write.Point {
	return write.NewPointWithMeasurement("repair_plan").
		AddTag("run_id", ev.RunID).
		AddTag("margin_ok", strconv.FormatBool(ev.Feasibility.MarginOK)).
		AddField("buildings", ev.Buildings).
		AddField("steps", ev.Steps).
		AddField("segments_repaired", ev.SegmentsRepaired).
		AddField("houses_restored", ev.HousesRestored).
		AddField("orders", ev.Orders).
		AddField("cost_eur", round3(ev.TotalCost)).
		AddField("unknown_kind_rows", ev.UnknownKinds).
		AddField("needed_hours", round3(ev.Feasibility.NeededHours)).
		AddField("target_hours", round3(ev.Feasibility.TargetHours)).
		SetTime(ev.Time)
}

func phasePoint(ev coremetrics.PhaseEvent) *write.Point {
	return write.NewPointWithMeasurement("repair_phase").
		AddTag("run_id", ev.RunID).
		AddTag("phase", strconv.Itoa(ev.Summary.Phase)).
		AddField("cost_eur", round3(ev.Summary.Cost)).
		AddField("time_h", round3(ev.Summary.TimeH)).
		AddField("tasks", ev.Summary.Tasks).
		SetTime(ev.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
