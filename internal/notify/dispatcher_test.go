package notify

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestDispatcher_PublishesEnqueuedEvents(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", KindOrderConfirmation, mock.Anything).Return(nil).Once()

	d := NewDispatcher(pub, quietLogger())
	d.backoff = time.Millisecond
	d.Start()

	d.Enqueue(Event{
		Kind:    KindOrderConfirmation,
		Payload: map[string]interface{}{"orderId": "abc-123"},
	})
	d.Close()

	pub.AssertExpectations(t)

	// The published body is the JSON-encoded event.
	body := pub.Calls[0].Arguments.Get(1).([]byte)
	var evt Event
	require.NoError(t, json.Unmarshal(body, &evt))
	assert.Equal(t, KindOrderConfirmation, evt.Kind)
	assert.Equal(t, "abc-123", evt.Payload["orderId"])
}

func TestDispatcher_RetriesThenGivesUp(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", KindOrderAdminAlert, mock.Anything).
		Return(errors.New("broker down")).Times(3)

	d := NewDispatcher(pub, quietLogger())
	d.backoff = time.Millisecond
	d.Start()

	d.Enqueue(Event{Kind: KindOrderAdminAlert})
	d.Close()

	pub.AssertExpectations(t)
}

func TestDispatcher_RecoversMidRetry(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", KindVerificationCode, mock.Anything).
		Return(errors.New("broker hiccup")).Once()
	pub.On("Publish", KindVerificationCode, mock.Anything).Return(nil).Once()

	d := NewDispatcher(pub, quietLogger())
	d.backoff = time.Millisecond
	d.Start()

	d.Enqueue(Event{Kind: KindVerificationCode})
	d.Close()

	pub.AssertExpectations(t)
}

func TestDispatcher_NilPublisherDropsQuietly(t *testing.T) {
	d := NewDispatcher(nil, quietLogger())
	d.Start()
	d.Enqueue(Event{Kind: KindOrderConfirmation})
	// Close drains without panicking or blocking.
	d.Close()
}
