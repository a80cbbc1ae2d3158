package sdk

import (
	"encoding/json"
	"slices"
	"strconv"
)

// saveLastLink caches the resolved link in memory and, unless persistence is
// disabled, writes a sanitized view plus a save timestamp to storage.
func (c *Client) saveLastLink(data ResolvedLinkData) {
	copied := data
	c.mu.Lock()
	c.lastLink = &copied
	c.mu.Unlock()

	if c.cfg.DisableLastLinkPersistence {
		return
	}
	payload := sanitizeLastLink(data, c.cfg.RedactAllLastLinkParameters, c.cfg.RedactedLastLinkKeys)
	raw, err := json.Marshal(payload)
	if err != nil {
		c.warnf("encode last link: %v", err)
		return
	}
	if err := c.storage.Put(storageKeyLastLink, string(raw)); err != nil {
		c.warnf("persist last link: %v", err)
		return
	}
	if err := c.storage.Put(storageKeyLastLinkSavedAt, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
		c.warnf("persist last link timestamp: %v", err)
	}
}

// sanitizeLastLink builds the persisted view of a resolved link. With
// redactAll, parameters and metadata are omitted wherever they appear;
// otherwise block-listed keys are stripped from them. Deferred stamps are
// written back so a reload reconstructs the same record.
func sanitizeLastLink(data ResolvedLinkData, redactAll bool, blocked []string) map[string]any {
	out := sanitizeNode(data.RawData, redactAll, blocked)
	if out == nil {
		out = make(map[string]any)
	}
	out["isDeferred"] = data.IsDeferred
	if data.MatchType != "" {
		out["matchType"] = data.MatchType
	}
	return out
}

func sanitizeNode(m map[string]any, redactAll bool, blocked []string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == "parameters" || k == "metadata" {
			if redactAll {
				continue
			}
			if sub, ok := v.(map[string]any); ok {
				out[k] = stripBlockedKeys(sub, blocked)
				continue
			}
		}
		if sub, ok := v.(map[string]any); ok {
			out[k] = sanitizeNode(sub, redactAll, blocked)
			continue
		}
		out[k] = v
	}
	return out
}

func stripBlockedKeys(m map[string]any, blocked []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if slices.Contains(blocked, k) {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			v = stripBlockedKeys(sub, blocked)
		}
		out[k] = v
	}
	return out
}

// loadLastLink reads the persisted last link, enforcing the TTL lazily: an
// expired record is deleted on read and reported as absent.
func (c *Client) loadLastLink() map[string]any {
	raw, ok := c.storage.Get(storageKeyLastLink)
	if !ok || raw == "" {
		return nil
	}
	if ttl := c.cfg.LastLinkTTLSeconds; ttl > 0 {
		savedRaw, ok := c.storage.Get(storageKeyLastLinkSavedAt)
		savedAt, err := strconv.ParseInt(savedRaw, 10, 64)
		if !ok || err != nil || c.now().UnixMilli()-savedAt > ttl*1000 {
			c.removeLastLink()
			c.debugf("last link expired")
			return nil
		}
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		c.removeLastLink()
		return nil
	}
	return decoded
}

func (c *Client) removeLastLink() {
	if err := c.storage.Remove(storageKeyLastLink); err != nil {
		c.warnf("remove last link: %v", err)
	}
	if err := c.storage.Remove(storageKeyLastLinkSavedAt); err != nil {
		c.warnf("remove last link timestamp: %v", err)
	}
}

// LastLink returns the most recently resolved link, consulting the persisted
// record when the in-memory cache is cold. When clear-on-read is configured
// both the cache and the persisted record are dropped after this read.
func (c *Client) LastLink() *ResolvedLinkData {
	c.mu.Lock()
	cached := c.lastLink
	c.mu.Unlock()

	if cached == nil {
		if m := c.loadLastLink(); m != nil {
			data := parseResolvedLinkData(m)
			cached = &data
			c.mu.Lock()
			c.lastLink = cached
			c.mu.Unlock()
		}
	}
	if cached == nil {
		return nil
	}
	if c.cfg.ClearLastLinkOnRead {
		c.mu.Lock()
		c.lastLink = nil
		c.mu.Unlock()
		c.removeLastLink()
	}
	out := *cached
	return &out
}
