package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// SentryChannel reports alerts to Sentry as warning-level messages.
type SentryChannel struct {
	hub *sentry.Hub
}

// NewSentryChannel creates a channel with its own Sentry client so alert
// reporting does not depend on the global hub.
func NewSentryChannel(opts sentry.ClientOptions) (*SentryChannel, error) {
	opts.AttachStacktrace = false
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create sentry client: %w", err)
	}
	return &SentryChannel{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (s *SentryChannel) Name() string { return "sentry" }

func (s *SentryChannel) Deliver(_ context.Context, alert perfmon.Alert) error {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("alert", alert.Name)
		scope.SetTag("signal", alert.Signal)
		scope.SetContext("alert", sentry.Context{
			"id":        alert.ID,
			"value":     alert.Value,
			"threshold": alert.Threshold,
			"fired_at":  alert.FiredAt,
		})
		scope.SetFingerprint([]string{alert.Name})
		s.hub.CaptureMessage(alert.Message)
	})
	return nil
}

// Flush waits up to timeout for buffered events to be sent.
func (s *SentryChannel) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
