package sdk

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohn93/ulink-go/internal/transport"
)

func TestForegroundStartsSession(t *testing.T) {
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)

	c.AppForegrounded()

	require.Eventually(t, func() bool {
		return c.GetSessionState() == SessionActive
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "sess-1", c.CurrentSessionID())
	require.True(t, c.HasActiveSession())
	require.Len(t, ft.callsTo("/sdk/sessions/start"), 1)
}

func TestBackgroundEndsActiveSession(t *testing.T) {
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)

	c.AppForegrounded()
	require.Eventually(t, func() bool {
		return c.GetSessionState() == SessionActive
	}, time.Second, 5*time.Millisecond)

	c.AppBackgrounded()
	require.Eventually(t, func() bool {
		return c.GetSessionState() == SessionIdle
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, c.CurrentSessionID())
	require.False(t, c.HasActiveSession())
	require.Len(t, ft.callsTo("/sess-1/end"), 1)
}

func TestBackgroundWithoutSessionIsNoop(t *testing.T) {
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)
	require.NoError(t, c.Initialize())

	c.AppBackgrounded()

	require.Eventually(t, func() bool {
		// Drain the dispatch queue before asserting.
		_, err := c.dispatch.call(func() (any, error) { return nil, nil })
		return err == nil
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, ft.callsTo("/end"))
	require.Equal(t, SessionIdle, c.GetSessionState())
}

func TestStartSessionFailureSetsFailedState(t *testing.T) {
	handler := func(method, url string, body []byte, headers map[string]string) (*transport.Response, error) {
		if strings.Contains(url, "/sdk/sessions/start") {
			return jsonResponse(500, `{"error":"boom"}`), nil
		}
		return bootstrapHandler(method, url, body, headers)
	}
	c, _ := newTestClient(t, Config{DisableDeferredLinkCheck: true}, handler)
	require.NoError(t, c.Initialize())

	err := c.StartSession(nil)
	require.ErrorContains(t, err, "HTTP 500")
	require.Equal(t, SessionFailed, c.GetSessionState())
	require.Empty(t, c.CurrentSessionID())

	// A failed session machine may be retried.
	c.AppForegrounded()
	require.Eventually(t, func() bool {
		return c.GetSessionState() == SessionFailed
	}, time.Second, 5*time.Millisecond)
}

func TestStartSessionWhileActiveIsRejected(t *testing.T) {
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)
	require.NoError(t, c.Initialize())

	require.NoError(t, c.StartSession(nil))
	require.Equal(t, SessionActive, c.GetSessionState())

	// A second start must not abandon the open session.
	err := c.StartSession(nil)
	require.ErrorContains(t, err, "already active")
	require.Equal(t, SessionActive, c.GetSessionState())
	require.Equal(t, "sess-1", c.CurrentSessionID())
	require.Len(t, ft.callsTo("/sdk/sessions/start"), 1)
	require.Empty(t, ft.callsTo("/end"))
}

func TestEndSessionFailureSetsFailedState(t *testing.T) {
	handler := func(method, url string, body []byte, headers map[string]string) (*transport.Response, error) {
		if strings.Contains(url, "/end") {
			return jsonResponse(500, `{"error":"boom"}`), nil
		}
		return bootstrapHandler(method, url, body, headers)
	}
	c, _ := newTestClient(t, Config{DisableDeferredLinkCheck: true}, handler)
	require.NoError(t, c.Initialize())
	require.NoError(t, c.StartSession(nil))

	require.False(t, c.EndSession())
	require.Equal(t, SessionFailed, c.GetSessionState())
}

func TestEndSessionWithoutSessionReturnsFalse(t *testing.T) {
	c, _ := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)
	require.NoError(t, c.Initialize())
	require.False(t, c.EndSession())
}

func TestSessionStartDeferredUntilBootstrapSucceeds(t *testing.T) {
	fail := true
	handler := func(method, url string, body []byte, headers map[string]string) (*transport.Response, error) {
		if strings.Contains(url, "/sdk/bootstrap") && fail {
			return jsonResponse(503, `{"error":"unavailable"}`), nil
		}
		return bootstrapHandler(method, url, body, headers)
	}
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, handler)

	// Foreground while the backend is down: the silent bootstrap retry fails
	// and the session start is parked.
	c.AppForegrounded()
	require.Eventually(t, func() bool {
		return len(ft.callsTo("/sdk/bootstrap")) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, SessionIdle, c.GetSessionState())
	require.Empty(t, ft.callsTo("/sdk/sessions/start"))

	// Once Initialize succeeds the parked session start runs.
	fail = false
	require.NoError(t, c.Initialize())
	require.Eventually(t, func() bool {
		return c.GetSessionState() == SessionActive
	}, time.Second, 5*time.Millisecond)
	require.Len(t, ft.callsTo("/sdk/sessions/start"), 1)
}

func TestStartSessionMetadataWinsOverTelemetry(t *testing.T) {
	c, ft := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler)
	require.NoError(t, c.Initialize())

	require.NoError(t, c.StartSession(map[string]any{
		"model":  "override-model",
		"source": "test",
	}))

	calls := ft.callsTo("/sdk/sessions/start")
	require.Len(t, calls, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Body, &body))
	require.Equal(t, "override-model", body["model"])
	require.Equal(t, "test", body["source"])
	require.Equal(t, "android", body["platform"])
	require.Equal(t, "Europe/Budapest", body["timezone"])
}
