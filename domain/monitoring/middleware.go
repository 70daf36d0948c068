package monitoring

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// ResponseTimeRecorder is the part of the monitor the middleware needs.
type ResponseTimeRecorder interface {
	RecordResponseTime(d time.Duration)
}

// ResponseTimeMiddleware times every request that the skipper lets through and
// feeds the latency to the monitor after the handler returns, errors included.
func ResponseTimeMiddleware(rec ResponseTimeRecorder, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			rec.RecordResponseTime(time.Since(start))
			return err
		}
	}
}

var _ ResponseTimeRecorder = (*perfmon.Monitor)(nil)
