//go:build integration

package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/core/workorder"
)

const (
	itOrg    = "grid"
	itBucket = "repairs"
	itToken  = "it-token"
)

// startInflux starts an InfluxDB 2.7 container initialized with itOrg,
// itBucket and itToken, and returns it along with the base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "admin-password",
			"DOCKER_INFLUXDB_INIT_ORG":         itOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      itBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": itToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestInfluxSinkIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	cont, url := startInflux(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: url, Token: itToken, Org: itOrg, Bucket: itBucket})
	is, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected influx sink, got %T", sink)
	}
	defer is.Close()

	now := time.Now()
	if err := is.RecordPlan(coremetrics.PlanEvent{
		RunID:       "it-run",
		Steps:       3,
		Orders:      5,
		TotalCost:   42000,
		Feasibility: workorder.Feasibility{NeededHours: 12.5, TargetHours: 16, MarginOK: true},
		Time:        now,
	}); err != nil {
		t.Fatalf("record plan: %v", err)
	}
	phases := []workorder.PhaseSummary{{Phase: 0, Cost: 10000, TimeH: 12.5, Tasks: 1}, {Phase: 1, Cost: 32000, TimeH: 40, Tasks: 4}}
	if err := is.RecordPhases(coremetrics.PhaseEvents("it-run", phases, now)); err != nil {
		t.Fatalf("record phases: %v", err)
	}

	client := influxdb2.NewClient(url, itToken)
	defer client.Close()
	flux := fmt.Sprintf(`from(bucket: %q) |> range(start: -1h) |> filter(fn: (r) => r._measurement == "repair_phase" and r._field == "cost_eur")`, itBucket)
	res, err := client.QueryAPI(itOrg).Query(ctx, flux)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	n := 0
	for res.Next() {
		n++
	}
	if res.Err() != nil {
		t.Fatalf("query result: %v", res.Err())
	}
	if n != 2 {
		t.Fatalf("expected 2 phase points, got %d", n)
	}
}
