package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/gridrepair/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockPublisher records orders in memory. Orders for segments listed in
// FailSegments fail to publish; every other order is acknowledged at once.
type MockPublisher struct {
	mu           sync.Mutex
	Orders       []coremqtt.OrderMessage
	Summaries    []coremqtt.SummaryMessage
	FailSegments map[string]bool
	acked        map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailSegments: make(map[string]bool),
		acked:        make(map[string]bool),
	}
}

// SendOrder records the order or returns an error if configured to fail.
func (m *MockPublisher) SendOrder(msg coremqtt.OrderMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSegments[msg.Task.SegmentID] {
		return "", fmt.Errorf("publish failed for %s", msg.Task.SegmentID)
	}
	if msg.OrderID == "" {
		msg.OrderID = fmt.Sprintf("order-%d", len(m.Orders)+1)
	}
	m.Orders = append(m.Orders, msg)
	m.acked[msg.OrderID] = true
	return msg.OrderID, nil
}

// PublishSummary records the summary.
func (m *MockPublisher) PublishSummary(msg coremqtt.SummaryMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Summaries = append(m.Summaries, msg)
	return nil
}

// WaitForAck simulates an immediate acknowledgment.
func (m *MockPublisher) WaitForAck(orderID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, exists := m.acked[orderID]
	if !exists {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownOrder, orderID)
	}
	return ok, nil
}
