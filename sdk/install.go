package sdk

import (
	"github.com/google/uuid"
)

// InstallationID returns the stable installation identifier, generating and
// persisting one on first use.
func (c *Client) InstallationID() string {
	return c.installationID()
}

// installationID is idempotent: once a value exists in storage it is never
// regenerated for the lifetime of that storage.
func (c *Client) installationID() string {
	c.mu.Lock()
	if c.installID != "" {
		id := c.installID
		c.mu.Unlock()
		return id
	}
	c.mu.Unlock()

	if v, ok := c.storage.Get(storageKeyInstallationID); ok && v != "" {
		c.mu.Lock()
		c.installID = v
		c.mu.Unlock()
		return v
	}

	id := uuid.NewString()
	if err := c.storage.Put(storageKeyInstallationID, id); err != nil {
		// Storage failures are non-fatal; the id just won't survive
		// a restart.
		c.warnf("persist installation id: %v", err)
	}
	c.mu.Lock()
	// Another caller may have raced us here; keep the first winner so all
	// callers observe a single id.
	if c.installID == "" {
		c.installID = id
	}
	id = c.installID
	c.mu.Unlock()
	return id
}

// installationToken returns the server-issued token, consulting storage when
// the in-memory cache is cold.
func (c *Client) installationToken() string {
	c.mu.Lock()
	if c.installToken != "" {
		token := c.installToken
		c.mu.Unlock()
		return token
	}
	c.mu.Unlock()

	v, _ := c.storage.Get(storageKeyInstallationToken)
	if v != "" {
		c.mu.Lock()
		c.installToken = v
		c.mu.Unlock()
	}
	return v
}

// saveInstallationToken overwrites the cached and persisted token. Tokens
// are never removed here; the server rotates them by issuing replacements.
func (c *Client) saveInstallationToken(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	c.installToken = token
	c.mu.Unlock()
	if err := c.storage.Put(storageKeyInstallationToken, token); err != nil {
		c.warnf("persist installation token: %v", err)
	}
	if exp, ok := tokenExpiresAt(token); ok {
		c.debugf("installation token rotated, expires %s", exp.UTC().Format("2006-01-02T15:04:05Z"))
	}
}
