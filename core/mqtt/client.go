// Package mqtt defines the crew dispatch contract: work orders are sent
// one message per task and crews acknowledge them by order id.
package mqtt

import (
	"time"

	"github.com/kilianp07/gridrepair/core/workorder"
)

// OrderMessage is the payload sent to crews for one task.
type OrderMessage struct {
	OrderID   string         `json:"order_id"`
	RunID     string         `json:"run_id"`
	Rank      int            `json:"rank"`
	Task      workorder.Task `json:"task"`
	Timestamp int64          `json:"timestamp"`
}

// SummaryMessage describes the whole schedule of a run.
type SummaryMessage struct {
	RunID       string                   `json:"run_id"`
	Orders      int                      `json:"orders"`
	Phases      []workorder.PhaseSummary `json:"phases"`
	Feasibility workorder.Feasibility    `json:"feasibility"`
	Timestamp   int64                    `json:"timestamp"`
}

// Client sends work orders to crews and waits for their acknowledgments.
type Client interface {
	// SendOrder publishes the order on its phase topic and returns the order
	// identifier used to track the acknowledgment. An empty OrderID is
	// filled in.
	SendOrder(msg OrderMessage) (orderID string, err error)

	// PublishSummary publishes the retained schedule summary.
	PublishSummary(msg SummaryMessage) error

	// WaitForAck waits for an acknowledgment for the provided order
	// identifier or until the timeout expires.
	WaitForAck(orderID string, timeout time.Duration) (bool, error)
}
