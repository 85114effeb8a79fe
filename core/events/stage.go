package events

import "time"

// Pipeline stage names.
const (
	StageIngest  = "ingest"
	StageEnrich  = "enrich"
	StageGraph   = "graph"
	StagePlan    = "plan"
	StageOrders  = "workorders"
	StageExport  = "export"
	StageStore   = "store"
	StagePublish = "publish"
)

// StageEvent is published when a pipeline stage completes.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Err      error
}

// Status returns "ok" or "error".
func (e StageEvent) Status() string {
	if e.Err != nil {
		return "error"
	}
	return "ok"
}
