package monitoring

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/salon-monitor/pkg/alerting"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

type fakeSubscriber struct {
	alerts     chan perfmon.Alert
	subscribed chan struct{}
	left       chan struct{}
	once       sync.Once
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		alerts:     make(chan perfmon.Alert, 1),
		subscribed: make(chan struct{}),
		left:       make(chan struct{}),
	}
}

func (f *fakeSubscriber) Subscribe(int) (<-chan perfmon.Alert, func()) {
	close(f.subscribed)
	return f.alerts, func() { f.once.Do(func() { close(f.left) }) }
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func readEvent(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestStreamAlerts(t *testing.T) {
	sub := newFakeSubscriber()
	e := echo.New()
	RegisterStreamRoutes(e, NewStreamHandler(sub, quietLogger()))

	srv := httptest.NewServer(e)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+alertStreamPath, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	waitFor(t, sub.subscribed, "subscription")

	sub.alerts <- perfmon.Alert{
		ID:      "a1",
		Name:    "RESPONSE_TIME_HIGH",
		Signal:  "response_time",
		Message: "Response time is 600 ms, above threshold of 500 ms",
		Value:   600,
	}

	lines := readEvent(t, bufio.NewReader(resp.Body))
	require.Len(t, lines, 3)
	assert.Equal(t, "id: a1", lines[0])
	assert.Equal(t, "event: alert", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: "))

	var got perfmon.Alert
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &got))
	assert.Equal(t, "RESPONSE_TIME_HIGH", got.Name)
	assert.Equal(t, 600.0, got.Value)

	cancel()
	waitFor(t, sub.left, "unsubscribe after client disconnect")
}

func TestStreamAlerts_KeepAliveAndShutdown(t *testing.T) {
	sub := newFakeSubscriber()
	h := NewStreamHandler(sub, quietLogger())
	h.keepAlive = 20 * time.Millisecond

	e := echo.New()
	RegisterStreamRoutes(e, h)
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + alertStreamPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{": keep-alive"}, readEvent(t, r))

	close(sub.alerts)
	waitFor(t, sub.left, "unsubscribe after stream close")
}

func TestStreamAlerts_WithStreamChannel(t *testing.T) {
	stream := alerting.NewStreamChannel()
	e := echo.New()
	RegisterStreamRoutes(e, NewStreamHandler(stream, quietLogger()))
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + alertStreamPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return stream.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, stream.Deliver(context.Background(), perfmon.Alert{ID: "a9", Name: "MEMORY_HIGH"}))

	lines := readEvent(t, bufio.NewReader(resp.Body))
	require.NotEmpty(t, lines)
	assert.Equal(t, "id: a9", lines[0])

	stream.Close()
}

func TestSkipTiming(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{
		alertStreamPath:               true,
		"/healthz":                    true,
		"/api/monitoring/cache":       false,
		"/api/monitoring/alerts":      false,
		"/api/monitoring/performance": false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		assert.Equal(t, want, skipTiming(c), path)
	}
}
