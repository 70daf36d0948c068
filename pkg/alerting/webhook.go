package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/emergent-company/salon-monitor/internal/version"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// ErrRateLimited is returned when the webhook has used up its delivery budget.
var ErrRateLimited = errors.New("webhook rate limit exceeded")

// WebhookChannel POSTs alerts as JSON. Deliveries are throttled by a token
// bucket and guarded by a circuit breaker so a dead receiver is not hammered.
type WebhookChannel struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// webhookPayload is the body sent to the receiver.
type webhookPayload struct {
	Alert   perfmon.Alert `json:"alert"`
	Service string        `json:"service"`
	Version string        `json:"version"`
}

// NewWebhookChannel creates a webhook channel allowing ratePerMinute deliveries
// per minute (<= 0 defaults to 30).
func NewWebhookChannel(url string, timeout time.Duration, ratePerMinute int) *WebhookChannel {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	burst := ratePerMinute / 6
	if burst < 1 {
		burst = 1
	}

	return &WebhookChannel{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "alert-webhook",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

// State reports the circuit breaker state.
func (w *WebhookChannel) State() gobreaker.State {
	return w.breaker.State()
}

func (w *WebhookChannel) Deliver(ctx context.Context, alert perfmon.Alert) error {
	if !w.limiter.Allow() {
		return ErrRateLimited
	}

	body, err := json.Marshal(webhookPayload{
		Alert:   alert,
		Service: "salon-monitor",
		Version: version.Version,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, body)
	})
	return err
}

func (w *WebhookChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
