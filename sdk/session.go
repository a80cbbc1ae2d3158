package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// AppForegrounded is the lifecycle entry point for foreground transitions.
// It runs asynchronously on the SDK dispatch queue.
func (c *Client) AppForegrounded() {
	_ = c.dispatch.do(c.onForeground)
}

// AppBackgrounded is the lifecycle entry point for background transitions.
func (c *Client) AppBackgrounded() {
	_ = c.dispatch.do(c.onBackground)
}

func (c *Client) onForeground() {
	if !c.bootstrapReady() {
		// Silent retry: a failure here only leaves bootstrap unsuccessful,
		// it never propagates out of the lifecycle handler.
		if err := c.Initialize(); err != nil {
			c.debugf("silent bootstrap retry failed: %v", err)
		}
	}
	if !c.bootstrapReady() {
		c.mu.Lock()
		c.boot.pendingSessionStart = true
		c.mu.Unlock()
		c.debugf("session start deferred until bootstrap succeeds")
		return
	}
	if st := c.GetSessionState(); st == SessionIdle || st == SessionFailed {
		_ = c.startSession(nil)
	}
}

func (c *Client) onBackground() {
	if c.GetSessionState() == SessionActive {
		c.endSession()
	}
}

// StartSession opens a session explicitly, merging the caller-supplied
// metadata into the device telemetry (caller keys win on collision). All
// failures are reported through the returned error; none panic or throw.
func (c *Client) StartSession(metadata map[string]any) error {
	_, err := c.dispatch.call(func() (any, error) {
		return nil, c.startSession(metadata)
	})
	return err
}

func (c *Client) startSession(metadata map[string]any) error {
	// An active session must leave through endSession; starting over it
	// would orphan the open session on the server.
	if c.GetSessionState() == SessionActive {
		return fmt.Errorf("session %s already active", c.CurrentSessionID())
	}
	c.setSessionState(SessionInitializing)

	body := telemetryBody(c.deviceInfo.DeviceInfo())
	for k, v := range metadata {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		c.setSessionState(SessionFailed)
		return fmt.Errorf("encode session start: %w", err)
	}

	resp, err := c.transport.Do(context.Background(), http.MethodPost,
		c.cfg.BaseURL+"/sdk/sessions/start", payload, c.bootstrapHeaders())
	if err != nil {
		c.setSessionState(SessionFailed)
		c.warnf("session start failed: %v", err)
		return fmt.Errorf("session start failed: %w", err)
	}
	if !resp.Success() {
		c.setSessionState(SessionFailed)
		c.warnf("session start rejected: HTTP %d", resp.StatusCode)
		return fmt.Errorf("session start rejected: HTTP %d: %s", resp.StatusCode, string(resp.Body))
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		c.setSessionState(SessionFailed)
		return fmt.Errorf("parse session start response: %w", err)
	}
	sid := stringField(decoded, "sessionId")
	if sid == "" {
		c.setSessionState(SessionFailed)
		return fmt.Errorf("session start response missing sessionId")
	}

	c.mu.Lock()
	c.currentSessionID = sid
	c.sessionState = SessionActive
	c.mu.Unlock()
	c.debugf("session %s started", sid)
	return nil
}

// EndSession closes the current session. It returns false when no session is
// open or when the close call fails.
func (c *Client) EndSession() bool {
	v, _ := c.dispatch.call(func() (any, error) {
		return c.endSession(), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (c *Client) endSession() bool {
	c.mu.Lock()
	sid := c.currentSessionID
	c.mu.Unlock()
	if sid == "" {
		return false
	}

	c.setSessionState(SessionEnding)
	endpoint := fmt.Sprintf("%s/sdk/sessions/%s/end", c.cfg.BaseURL, url.PathEscape(sid))
	resp, err := c.transport.Do(context.Background(), http.MethodPost, endpoint, nil, c.bootstrapHeaders())
	if err != nil {
		c.setSessionState(SessionFailed)
		c.warnf("session end failed: %v", err)
		return false
	}
	if !resp.Success() {
		c.setSessionState(SessionFailed)
		c.warnf("session end rejected: HTTP %d", resp.StatusCode)
		return false
	}

	c.mu.Lock()
	c.currentSessionID = ""
	c.sessionState = SessionIdle
	c.mu.Unlock()
	c.debugf("session %s ended", sid)
	return true
}

func (c *Client) setSessionState(state SessionState) {
	c.mu.Lock()
	prev := c.sessionState
	c.sessionState = state
	c.mu.Unlock()
	if prev != state {
		c.debugf("session state %s -> %s", prev, state)
	}
}
