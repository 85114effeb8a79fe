package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) SendOrder(msg OrderMessage) (string, error) {
	args := m.Called(msg)
	return args.String(0), args.Error(1)
}

func (m *mockClient) PublishSummary(msg SummaryMessage) error {
	return m.Called(msg).Error(0)
}

func (m *mockClient) WaitForAck(id string, timeout time.Duration) (bool, error) {
	args := m.Called(id, timeout)
	return args.Bool(0), args.Error(1)
}

func TestDispatchWaitsForEveryAck(t *testing.T) {
	c := &mockClient{}
	for _, seg := range []string{"S1", "S2", "S3"} {
		seg := seg
		c.On("SendOrder", mock.MatchedBy(func(m OrderMessage) bool { return m.Task.SegmentID == seg && m.RunID == "r" })).
			Return("id-"+seg, nil).Once()
	}
	c.On("PublishSummary", mock.MatchedBy(func(m SummaryMessage) bool { return m.Orders == 3 })).Return(nil).Once()
	c.On("WaitForAck", "id-S1", time.Second).Return(true, nil)
	c.On("WaitForAck", "id-S2", time.Second).Return(true, nil)
	c.On("WaitForAck", "id-S3", time.Second).Return(false, ErrAckTimeout)

	rep, err := Dispatch(c, "r", schedule(), time.Second)
	assert.ErrorIs(t, err, ErrAckTimeout)
	assert.Equal(t, 2, rep.Acked)
	assert.Len(t, rep.Sent, 3)
	c.AssertExpectations(t)
}

func TestDispatchSummaryFailure(t *testing.T) {
	c := &mockClient{}
	c.On("SendOrder", mock.Anything).Return("id", nil)
	c.On("PublishSummary", mock.Anything).Return(errors.New("retained publish refused"))

	_, err := Dispatch(c, "r", schedule(), 0)
	assert.Error(t, err)
	c.AssertNotCalled(t, "WaitForAck", mock.Anything, mock.Anything)
}
