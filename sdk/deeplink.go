package sdk

import "fmt"

// HandleIntent dispatches a deep link URI received by the host app (for
// example from an Android intent). Resolution and event emission happen
// asynchronously on the SDK dispatch queue.
func (c *Client) HandleIntent(uri string) {
	_ = c.dispatch.do(func() {
		c.handleDeepLink(uri, false, "")
	})
}

// handleDeepLink is the shared dispatch path for organic and deferred links:
// resolve, stamp, persist as last link, then emit to exactly one typed
// channel. Resolution failures are logged and dropped; no event is emitted
// and nothing surfaces to the caller.
func (c *Client) handleDeepLink(uri string, isDeferred bool, matchType string) {
	res, err := c.ResolveLink(uri)
	if err != nil {
		c.warnf("deep link dropped, SDK not initialized: %v", err)
		return
	}
	if !res.Success {
		c.warnf("deep link resolution failed: %s", res.Error)
		c.notifyError(fmt.Sprintf("deep link resolution failed: %s", res.Error))
		return
	}
	if res.Data == nil {
		c.warnf("deep link resolved without payload: %s", uri)
		return
	}

	data := parseResolvedLinkData(res.Data)
	if isDeferred {
		data.IsDeferred = true
		data.MatchType = matchType
	}
	c.saveLastLink(data)

	listener := c.getListener()
	if data.Type == LinkTypeUnified {
		c.unifiedLinks.emit(data)
		if listener != nil {
			_ = c.callbacks.do(func() { listener.OnUnifiedLink(data) })
		}
	} else {
		// Unknown or missing types default to the dynamic channel.
		c.dynamicLinks.emit(data)
		if listener != nil {
			_ = c.callbacks.do(func() { listener.OnDynamicLink(data) })
		}
	}
	c.debugf("deep link dispatched (type=%s deferred=%v)", data.Type, isDeferred)
}
