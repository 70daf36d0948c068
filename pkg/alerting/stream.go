package alerting

import (
	"context"

	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/sse"
)

// StreamChannel publishes alerts to live subscribers, such as dashboards
// following the alert event stream. Subscribers that fall behind miss alerts.
type StreamChannel struct {
	broker *sse.Broker[perfmon.Alert]
}

// NewStreamChannel creates a stream channel with no subscribers.
func NewStreamChannel() *StreamChannel {
	return &StreamChannel{broker: sse.NewBroker[perfmon.Alert]()}
}

func (s *StreamChannel) Name() string { return "stream" }

// Deliver publishes the alert. Having no subscribers is not an error.
func (s *StreamChannel) Deliver(_ context.Context, alert perfmon.Alert) error {
	s.broker.Publish(alert)
	return nil
}

// Subscribers returns the number of live subscribers.
func (s *StreamChannel) Subscribers() int {
	return s.broker.Subscribers()
}

// Subscribe registers a live subscriber; call the returned func to leave.
func (s *StreamChannel) Subscribe(buffer int) (<-chan perfmon.Alert, func()) {
	return s.broker.Subscribe(buffer)
}

// Close ends every subscription.
func (s *StreamChannel) Close() {
	s.broker.Close()
}
