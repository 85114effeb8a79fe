package metrics

import (
	"context"

	"github.com/kilianp07/gridrepair/core/events"
	coremetrics "github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/internal/eventbus"
)

// StartStageCollector subscribes to the stage bus and forwards timings to
// sinks implementing StageRecorder. The returned channel is closed when the
// collector stops, on ctx cancellation or once the bus is closed and drained.
func StartStageCollector(ctx context.Context, bus *eventbus.TypedBus[events.StageEvent], sink coremetrics.PlanSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StageRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordStage(coremetrics.StageTiming{
					RunID:    ev.RunID,
					Stage:    ev.Stage,
					Duration: ev.Duration,
					Failed:   ev.Err != nil,
				})
			}
		}
	}()
	return done
}
