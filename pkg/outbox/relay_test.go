package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	args := m.Called(ctx, relayID, batchSize, lease)
	events, _ := args.Get(0).([]Event)
	return events, args.Error(1)
}

func (m *storeMock) MarkSent(ctx context.Context, ids []int64) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *storeMock) Release(ctx context.Context, id int64, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

func (m *storeMock) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

type producerMock struct {
	mock.Mock
}

func (m *producerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func event(id int64, retries int) Event {
	return Event{ID: id, AggregateID: "pay-1", Type: "OrderPaid", Payload: []byte(`{}`), Headers: map[string]string{"aggregate_type": "checkout"}, RetryCount: retries, Traceparent: "00-abc-def-01"}
}

func TestRelayTick(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")

	tests := []struct {
		name     string
		events   []Event
		produce  func(p *producerMock)
		expect   func(s *storeMock)
		wantSent int
	}{
		{
			name:   "nothing pending",
			events: nil,
			produce: func(p *producerMock) {},
			expect:  func(s *storeMock) {},
		},
		{
			name:   "all sent",
			events: []Event{event(1, 0), event(2, 0)},
			produce: func(p *producerMock) {
				p.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
			},
			expect: func(s *storeMock) {
				s.On("MarkSent", mock.Anything, []int64{1, 2}).Return(nil)
			},
			wantSent: 2,
		},
		{
			name:   "transient failure is released",
			events: []Event{event(1, 0)},
			produce: func(p *producerMock) {
				p.On("WriteMessages", mock.Anything, mock.Anything).Return(boom)
			},
			expect: func(s *storeMock) {
				s.On("Release", mock.Anything, int64(1), "broker down").Return(nil)
			},
		},
		{
			name:   "retries exhausted marks failed",
			events: []Event{event(1, 9)},
			produce: func(p *producerMock) {
				p.On("WriteMessages", mock.Anything, mock.Anything).Return(boom)
			},
			expect: func(s *storeMock) {
				s.On("MarkFailed", mock.Anything, int64(1), "broker down").Return(nil)
			},
		},
		{
			name:    "empty payload is permanent",
			events:  []Event{{ID: 7, Type: "OrderPaid"}},
			produce: func(p *producerMock) {},
			expect: func(s *storeMock) {
				s.On("MarkFailed", mock.Anything, int64(7), mock.Anything).Return(nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &storeMock{}
			producer := &producerMock{}
			store.On("LockBatch", mock.Anything, "relay-1", 100, 5*time.Second).Return(tt.events, nil)
			tt.produce(producer)
			tt.expect(store)

			relay := NewRelay(logging.Discard(), store, NewDispatcher(logging.Discard(), producer, "checkout.events"), "relay-1")
			sent, err := relay.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, sent)

			store.AssertExpectations(t)
			producer.AssertExpectations(t)
		})
	}
}

func TestDispatcher_SetsHeadersAndKey(t *testing.T) {
	t.Parallel()

	producer := &producerMock{}
	producer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		m := msgs[0]
		got := map[string]string{}
		for _, h := range m.Headers {
			got[h.Key] = string(h.Value)
		}
		return string(m.Key) == "pay-1" &&
			m.Topic == "checkout.events" &&
			got["event_type"] == "OrderPaid" &&
			got["event_id"] == "1" &&
			got["aggregate_type"] == "checkout" &&
			got["traceparent"] == "00-abc-def-01"
	})).Return(nil)

	d := NewDispatcher(logging.Discard(), producer, "checkout.events")
	require.NoError(t, d.Dispatch(context.Background(), event(1, 0)))
	producer.AssertExpectations(t)
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	ev, err := NewEvent(context.Background(), "checkout", "pay-1", "OrderPaid", map[string]string{"payment_id": "pay-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment_id":"pay-1"}`, string(ev.Payload))
	assert.Equal(t, StatusPending, ev.Status)
	assert.Equal(t, "checkout", ev.Headers["aggregate_type"])
}
