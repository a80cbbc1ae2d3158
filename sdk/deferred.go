package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mohn93/ulink-go/internal/device"
)

// CheckDeferredLink runs the one-shot deferred deep link match synchronously.
// It returns an *InitializationError when bootstrap has not completed
// successfully; every failure inside the match itself is logged and
// swallowed. The SDK also runs this automatically after the first successful
// bootstrap unless Config.DisableDeferredLinkCheck is set.
func (c *Client) CheckDeferredLink() error {
	if err := c.requireBootstrap(); err != nil {
		return err
	}
	_, err := c.dispatch.call(func() (any, error) {
		c.runDeferredCheck()
		return nil, nil
	})
	return err
}

// runDeferredCheck attempts to recover the deep link that led to this
// installation: deterministically via the install-referrer click id when
// available, otherwise probabilistically via a device fingerprint. The
// one-shot guard is persisted regardless of outcome so matching never
// repeats across app restarts.
func (c *Client) runDeferredCheck() {
	if v, _ := c.storage.Get(storageKeyDeferredChecked); v == "true" {
		c.debugf("deferred link already checked")
		return
	}
	defer func() {
		if err := c.storage.Put(storageKeyDeferredChecked, "true"); err != nil {
			c.warnf("persist deferred-checked flag: %v", err)
		}
	}()

	payload := map[string]any{"fingerprint": c.deviceFingerprint()}
	if clickID := c.installReferrerClickID(); clickID != "" {
		payload["clickId"] = clickID
	}
	if id := c.installationID(); id != "" {
		payload["installationId"] = id
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.warnf("encode deferred match request: %v", err)
		return
	}

	headers := map[string]string{
		headerContentType: contentTypeJSON,
		headerAppKey:      c.cfg.APIKey,
	}
	resp, err := c.transport.Do(context.Background(), http.MethodPost, c.deferredMatchURL, body, headers)
	if err != nil {
		c.warnf("deferred match request failed: %v", err)
		c.notifyError(fmt.Sprintf("deferred match request failed: %v", err))
		return
	}
	if !resp.Success() {
		c.warnf("deferred match rejected: HTTP %d", resp.StatusCode)
		c.notifyError(fmt.Sprintf("deferred match rejected: HTTP %d", resp.StatusCode))
		return
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		c.warnf("parse deferred match response: %v", err)
		return
	}
	data, _ := decoded["data"].(map[string]any)
	if data == nil {
		c.debugf("no deferred link match")
		return
	}
	deepLink := stringField(data, "deepLink")
	if deepLink == "" || deepLink == "null" {
		c.debugf("no deferred link match")
		return
	}
	if _, err := url.Parse(deepLink); err != nil {
		c.warnf("deferred link is not a valid URI: %v", err)
		return
	}
	matchType := stringField(data, "matchType")
	if matchType == "" {
		matchType = stringField(decoded, "matchType")
	}

	c.debugf("deferred link matched via %q", matchType)
	c.handleDeepLink(deepLink, true, matchType)
}

// installReferrerClickID extracts the click id planted by the backend in the
// install-referrer payload. Any unavailability (no source, error, malformed
// payload) is treated as "no click id" and matching falls back to the
// fingerprint.
func (c *Client) installReferrerClickID() string {
	if c.referrer == nil {
		return ""
	}
	ref, err := c.referrer.InstallReferrer()
	if err != nil {
		c.debugf("install referrer unavailable: %v", err)
		return ""
	}
	values, err := url.ParseQuery(ref)
	if err != nil {
		return ""
	}
	return values.Get("click_id")
}

// deviceFingerprint builds the probabilistic matching fingerprint. Screen
// dimensions are reported in CSS pixels to line up with what the link page's
// browser recorded from window.screen at click time.
func (c *Client) deviceFingerprint() map[string]any {
	info := c.deviceInfo.DeviceInfo()
	fp := make(map[string]any)
	put := func(key, value string) {
		if value != "" {
			fp[key] = value
		}
	}
	put("os", info.Platform)
	put("osVersion", info.OSVersion)
	put("model", info.Model)
	put("brand", info.Brand)
	put("device", info.Device)
	put("manufacturer", info.Manufacturer)
	put("product", info.Product)
	put("hardwareId", info.HardwareID)
	if info.ScreenWidthPx > 0 {
		fp["screenWidth"] = device.CSSPixels(info.ScreenWidthPx, info.ScreenDensity)
	}
	if info.ScreenHeightPx > 0 {
		fp["screenHeight"] = device.CSSPixels(info.ScreenHeightPx, info.ScreenDensity)
	}
	put("timezone", info.TimezoneID)
	put("language", info.LanguageTag)
	return fp
}
