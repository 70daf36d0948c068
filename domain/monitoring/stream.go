package monitoring

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/sse"
)

const (
	streamBuffer    = 16
	streamKeepAlive = 15 * time.Second
)

// AlertSubscriber hands out live alert subscriptions.
type AlertSubscriber interface {
	Subscribe(buffer int) (<-chan perfmon.Alert, func())
}

// StreamHandler streams fired alerts as Server-Sent Events.
type StreamHandler struct {
	alerts    AlertSubscriber
	log       *slog.Logger
	keepAlive time.Duration
}

// NewStreamHandler creates a new alert stream handler
func NewStreamHandler(alerts AlertSubscriber, log *slog.Logger) *StreamHandler {
	return &StreamHandler{
		alerts:    alerts,
		log:       log.With(logger.Scope("monitoring.stream")),
		keepAlive: streamKeepAlive,
	}
}

// StreamAlerts handles GET /api/monitoring/alerts/stream
// @Summary      Live alert stream
// @Description  Server-Sent Events, one "alert" event per fired alert
// @Tags         monitoring
// @Produce      text/event-stream
// @Router       /api/monitoring/alerts/stream [get]
func (h *StreamHandler) StreamAlerts(c echo.Context) error {
	alerts, leave := h.alerts.Subscribe(streamBuffer)
	defer leave()

	// The server write timeout would cut the stream; lift it for this response.
	_ = http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{})

	w := sse.NewWriter(c.Response())
	defer w.Close()
	if err := w.Start(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	h.log.Debug("alert stream opened", slog.String("remote_ip", c.RealIP()))

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("alert stream closed by client")
			return nil
		case alert, ok := <-alerts:
			if !ok {
				// shutting down
				return nil
			}
			if err := w.WriteEvent(alert.ID, "alert", alert); err != nil {
				h.log.Debug("alert stream write failed", logger.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := w.WriteComment("keep-alive"); err != nil {
				return nil
			}
		}
	}
}
