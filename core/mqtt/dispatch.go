package mqtt

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gridrepair/core/workorder"
)

// DispatchReport lists the orders sent for a run and those that failed.
// Tasks are keyed by TaskKey since a shared segment yields one task per
// building.
type DispatchReport struct {
	Sent   map[string]string // order id -> task key
	Failed map[string]error  // task key -> publish error
	Acked  int
}

// TaskKey identifies a task as "building/segment".
func TaskKey(t workorder.Task) string { return t.BuildingID + "/" + t.SegmentID }

// Dispatch sends every order in rank order then the summary. Publish
// failures do not stop the loop; they are collected and joined in the
// returned error. With ackTimeout > 0 each sent order is awaited.
func Dispatch(c Client, runID string, sched workorder.Schedule, ackTimeout time.Duration) (DispatchReport, error) {
	rep := DispatchReport{Sent: map[string]string{}, Failed: map[string]error{}}
	var errs []error
	now := time.Now().UnixMilli()
	for i, t := range sched.Orders {
		id, err := c.SendOrder(OrderMessage{RunID: runID, Rank: i + 1, Task: t, Timestamp: now})
		if err != nil {
			rep.Failed[TaskKey(t)] = err
			errs = append(errs, fmt.Errorf("order %s: %w", TaskKey(t), err))
			continue
		}
		rep.Sent[id] = TaskKey(t)
	}
	if err := c.PublishSummary(SummaryMessage{
		RunID:       runID,
		Orders:      len(rep.Sent),
		Phases:      sched.Phases,
		Feasibility: sched.Feasibility,
		Timestamp:   now,
	}); err != nil {
		errs = append(errs, fmt.Errorf("summary: %w", err))
	}
	if ackTimeout > 0 {
		for id := range rep.Sent {
			ok, err := c.WaitForAck(id, ackTimeout)
			if err != nil {
				errs = append(errs, fmt.Errorf("ack %s: %w", id, err))
				continue
			}
			if ok {
				rep.Acked++
			}
		}
	}
	return rep, errors.Join(errs...)
}
