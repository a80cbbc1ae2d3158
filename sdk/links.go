package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CreateLink creates a dynamic or unified link.
//
// A non-nil error is returned only when bootstrap has not completed
// successfully (and is always an *InitializationError). Every other failure,
// including invalid parameters and HTTP errors, is reported through
// LinkResult.Error so opportunistic UI callers can degrade gracefully.
func (c *Client) CreateLink(params LinkParameters) (LinkResult, error) {
	if err := c.requireBootstrap(); err != nil {
		return LinkResult{}, err
	}
	if err := c.validate.Struct(params); err != nil {
		return LinkResult{Error: fmt.Sprintf("invalid link parameters: %v", err)}, nil
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return LinkResult{Error: fmt.Sprintf("encode link parameters: %v", err)}, nil
	}
	resp, err := c.transport.Do(context.Background(), http.MethodPost,
		c.cfg.BaseURL+"/sdk/links", payload, c.linkHeaders())
	if err != nil {
		return LinkResult{Error: err.Error()}, nil
	}
	if !resp.Success() {
		return LinkResult{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(resp.Body))}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return LinkResult{Error: fmt.Sprintf("parse link response: %v", err)}, nil
	}

	linkURL := stringField(decoded, "shortUrl")
	if linkURL == "" {
		linkURL = stringField(decoded, "url")
	}
	if linkURL == "" {
		return LinkResult{Error: "No URL in response", Data: decoded}, nil
	}
	c.debugf("link created: %s", linkURL)
	return LinkResult{Success: true, URL: linkURL, Data: decoded}, nil
}

// ResolveLink resolves a short or deep link into its full payload. The error
// contract matches CreateLink: only the bootstrap gate produces an error.
func (c *Client) ResolveLink(link string) (LinkResult, error) {
	if err := c.requireBootstrap(); err != nil {
		return LinkResult{}, err
	}

	endpoint := fmt.Sprintf("%s/sdk/resolve?url=%s", c.cfg.BaseURL, url.QueryEscape(link))
	resp, err := c.transport.Do(context.Background(), http.MethodGet, endpoint, nil, c.linkHeaders())
	if err != nil {
		return LinkResult{Error: err.Error()}, nil
	}
	if !resp.Success() {
		return LinkResult{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(resp.Body))}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return LinkResult{Error: fmt.Sprintf("parse resolve response: %v", err)}, nil
	}

	// Resolution can rotate the installation token.
	token := resp.Headers.Get(responseHeaderInstallationToken)
	if token == "" {
		token = stringField(decoded, "installationToken")
	}
	if token != "" {
		c.saveInstallationToken(token)
	}

	resolved := stringField(decoded, "url")
	if resolved == "" {
		resolved = link
	}
	c.debugf("link resolved: %s", resolved)
	return LinkResult{Success: true, URL: resolved, Data: decoded}, nil
}
