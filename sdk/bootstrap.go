package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mohn93/ulink-go/internal/device"
)

// Initialize performs the combined bootstrap call: it registers or updates
// the installation on the server, obtains a session id, runs reinstall
// detection, and persists the installation token if one is issued.
//
// Initialize is idempotent once it has succeeded. After a failure it may be
// called again to retry, but only one attempt runs at a time; a call made
// while an attempt is in flight does not start another, it waits for that
// attempt and returns its result.
func (c *Client) Initialize() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return fmt.Errorf("ulink: client disposed")
	}
	if c.boot.completed && c.boot.succeeded {
		c.mu.Unlock()
		return nil
	}
	if c.bootInFlight {
		done := c.bootDone
		c.mu.Unlock()
		<-done
		c.mu.Lock()
		err := c.boot.lastErr
		c.mu.Unlock()
		return err
	}
	c.bootInFlight = true
	c.bootDone = make(chan struct{})
	c.mu.Unlock()

	err := c.bootstrap()

	c.mu.Lock()
	c.bootInFlight = false
	c.boot.completed = true
	c.boot.succeeded = err == nil
	c.boot.lastErr = err
	pending := false
	if err == nil && c.boot.pendingSessionStart {
		c.boot.pendingSessionStart = false
		pending = true
	}
	done := c.bootDone
	c.mu.Unlock()
	close(done)

	if err != nil {
		c.warnf("bootstrap failed: %v", err)
		c.notifyError(err.Error())
		return err
	}

	c.debugf("bootstrap completed")
	if pending {
		_ = c.dispatch.do(func() {
			if st := c.GetSessionState(); st == SessionIdle || st == SessionFailed {
				_ = c.startSession(nil)
			}
		})
	}
	if !c.cfg.DisableDeferredLinkCheck {
		_ = c.dispatch.do(c.runDeferredCheck)
	}
	return nil
}

// bootstrapReady reports whether bootstrap completed successfully.
func (c *Client) bootstrapReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boot.completed && c.boot.succeeded
}

// requireBootstrap gates network operations on bootstrap success.
func (c *Client) requireBootstrap() error {
	if c.bootstrapReady() {
		return nil
	}
	return &InitializationError{Message: "SDK not initialized; call Initialize first"}
}

func (c *Client) bootstrap() error {
	id := c.installationID()
	if id == "" {
		return &InitializationError{Message: "no installation id available"}
	}

	body := telemetryBody(c.deviceInfo.DeviceInfo())
	body["installationId"] = id
	payload, err := json.Marshal(body)
	if err != nil {
		return &InitializationError{Message: "encode bootstrap request", Cause: err}
	}

	resp, err := c.transport.Do(context.Background(), http.MethodPost,
		c.cfg.BaseURL+"/sdk/bootstrap", payload, c.bootstrapHeaders())
	if err != nil {
		return &InitializationError{Message: fmt.Sprintf("bootstrap request failed: %v", err), Cause: err}
	}
	if !resp.Success() {
		return &InitializationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("bootstrap rejected: %s", string(resp.Body)),
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return &InitializationError{
			StatusCode: resp.StatusCode,
			Message:    "parse bootstrap response",
			Cause:      err,
		}
	}

	// The response header wins over the body field when both carry a token.
	token := resp.Headers.Get(responseHeaderInstallationToken)
	if token == "" {
		token = stringField(decoded, "installationToken")
	}
	if token != "" {
		c.saveInstallationToken(token)
	}

	// Bootstrap can open a session server-side; record the id without
	// driving the session state machine (see HasActiveSession).
	if sid := stringField(decoded, "sessionId"); sid != "" {
		c.mu.Lock()
		c.currentSessionID = sid
		c.mu.Unlock()
		c.debugf("bootstrap opened session %s", sid)
	}

	info := InstallationInfo{
		InstallationID:         id,
		IsReinstall:            boolField(decoded, "isReinstall"),
		PreviousInstallationID: stringField(decoded, "previousInstallationId"),
		ReinstallDetectedAt:    stringField(decoded, "reinstallDetectedAt"),
		PersistentDeviceID:     stringField(decoded, "persistentDeviceId"),
	}
	c.mu.Lock()
	c.installInfo = &info
	c.mu.Unlock()

	if info.IsReinstall {
		c.debugf("reinstall detected, previous installation %s", info.PreviousInstallationID)
		c.reinstalls.emit(info)
		if l := c.getListener(); l != nil {
			_ = c.callbacks.do(func() { l.OnReinstall(info) })
		}
	}
	return nil
}

// telemetryBody maps device facts into the wire shape shared by bootstrap
// and session start. Empty fields are omitted.
func telemetryBody(info device.Info) map[string]any {
	m := make(map[string]any)
	put := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	put("platform", info.Platform)
	put("osVersion", info.OSVersion)
	put("model", info.Model)
	put("brand", info.Brand)
	put("manufacturer", info.Manufacturer)
	put("networkType", info.NetworkType)
	put("language", info.LanguageTag)
	put("timezone", info.TimezoneID)
	put("appVersion", info.AppVersion)
	if info.BatteryLevel > 0 {
		m["batteryLevel"] = info.BatteryLevel
	}
	return m
}
