// Package alerting delivers performance alerts and error counts produced by
// perfmon to Prometheus, the log, and optional outbound channels.
package alerting

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/tracing"
)

// ErrQueueFull is returned by EmitAlert when the delivery queue has no room.
var ErrQueueFull = errors.New("alert queue full")

// Config holds alert delivery settings.
type Config struct {
	WebhookURL     string        `env:"ALERT_WEBHOOK_URL" envDefault:""`
	WebhookTimeout time.Duration `env:"ALERT_WEBHOOK_TIMEOUT" envDefault:"5s"`
	RatePerMinute  int           `env:"ALERT_RATE_PER_MINUTE" envDefault:"30"`
	BufferSize     int           `env:"ALERT_BUFFER_SIZE" envDefault:"64"`
}

// Channel is an outbound alert destination.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, alert perfmon.Alert) error
}

// Sink implements perfmon.TelemetrySink. EmitAlert never blocks: alerts are
// queued and delivered to every channel by a single background worker.
type Sink struct {
	log             *slog.Logger
	channels        []Channel
	deliveryTimeout time.Duration

	queue chan perfmon.Alert

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var _ perfmon.TelemetrySink = (*Sink)(nil)

// NewSink creates a sink. bufferSize <= 0 defaults to 64.
func NewSink(log *slog.Logger, bufferSize int, channels ...Channel) *Sink {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Sink{
		log:             log.With(logger.Scope("alerting.sink")),
		channels:        channels,
		deliveryTimeout: 10 * time.Second,
		queue:           make(chan perfmon.Alert, bufferSize),
	}
}

// Channels returns the names of the configured delivery channels.
func (s *Sink) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, c := range s.channels {
		names = append(names, c.Name())
	}
	return names
}

// IncrementError counts an internal monitoring failure.
func (s *Sink) IncrementError(category string) {
	ErrorsTotal.WithLabelValues(category).Inc()
}

// EmitAlert logs and counts the alert and queues it for delivery.
func (s *Sink) EmitAlert(_ context.Context, alert perfmon.Alert) error {
	s.log.Warn("performance alert",
		slog.String("id", alert.ID),
		slog.String("kind", alert.Name),
		slog.String("message", alert.Message),
		slog.Float64("value", alert.Value),
		slog.Float64("threshold", alert.Threshold))
	AlertsTotal.WithLabelValues(alert.Signal).Inc()

	if len(s.channels) == 0 {
		return nil
	}

	select {
	case s.queue <- alert:
		return nil
	default:
		AlertsDropped.Inc()
		return ErrQueueFull
	}
}

// Start launches the delivery worker.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)

	s.log.Info("alert delivery started", slog.Any("channels", s.Channels()))
	return nil
}

// Stop stops the worker after it has delivered what is already queued,
// or when ctx expires.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		s.log.Info("alert delivery stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case alert := <-s.queue:
			s.deliver(alert)
		case <-stopCh:
			for {
				select {
				case alert := <-s.queue:
					s.deliver(alert)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) deliver(alert perfmon.Alert) {
	for _, ch := range s.channels {
		ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
		ctx, span := tracing.Start(ctx, "alerting.deliver",
			attribute.String("alert.channel", ch.Name()),
			attribute.String("alert.name", alert.Name),
		)
		err := ch.Deliver(ctx, alert)
		tracing.Fail(span, err)
		span.End()
		cancel()

		if err != nil {
			DeliveryFailures.WithLabelValues(ch.Name()).Inc()
			s.log.Error("alert delivery failed",
				slog.String("channel", ch.Name()),
				slog.String("alert", alert.Name),
				logger.Error(err))
			continue
		}
		s.log.Debug("alert delivered",
			slog.String("channel", ch.Name()),
			slog.String("alert", alert.Name))
	}
}
