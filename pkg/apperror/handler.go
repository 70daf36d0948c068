package apperror

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/salon-monitor/pkg/logger"
)

// statusCodes maps plain echo HTTP errors to envelope codes.
var statusCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusTooManyRequests:     "rate_limited",
	http.StatusServiceUnavailable:  "service_unavailable",
	http.StatusInternalServerError: "internal_error",
}

// HTTPErrorHandler returns an Echo error handler that renders every error in the
// {"error": {"code", "message"}} envelope.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, response := ToHTTPError(err)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			errorObj := map[string]any{
				"code":    "internal_error",
				"message": http.StatusText(he.Code),
			}
			if name, ok := statusCodes[he.Code]; ok {
				errorObj["code"] = name
			}
			if msg, ok := he.Message.(string); ok {
				errorObj["message"] = msg
			}
			response = map[string]any{"error": errorObj}
		}

		// 5xx errors get logged at error level
		if code >= 500 {
			log.Error("request error",
				slog.Int("status", code),
				slog.String("path", c.Request().URL.Path),
				logger.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
		} else {
			_ = c.JSON(code, response)
		}
	}
}
