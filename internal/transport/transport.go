// Package transport implements the HTTP collaborator used by the ULink SDK.
//
// The SDK treats HTTP as a black-box capability: request in, status/body/
// headers out. All protocol decisions (which statuses are fatal, which
// headers matter) live in the sdk package.
package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"resty.dev/v3"
)

const (
	// defaultConnectTimeout bounds connection establishment.
	defaultConnectTimeout = 10 * time.Second
	// defaultReadTimeout bounds the full request/response exchange.
	defaultReadTimeout = 30 * time.Second
)

// Response is the transport-level result of a single HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs HTTP requests on behalf of the SDK.
type Client struct {
	rc *resty.Client
}

// New creates a transport client with the default timeouts.
func New() *Client {
	return NewWithTimeouts(defaultConnectTimeout, defaultReadTimeout)
}

// NewWithTimeouts creates a transport client with explicit connect and read
// timeouts.
func NewWithTimeouts(connect, read time.Duration) *Client {
	hc := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connect}).DialContext,
		},
	}
	rc := resty.NewWithClient(hc).SetTimeout(read)
	return &Client{rc: rc}
}

// Do performs a single HTTP request and returns the raw response.
//
// Non-2xx statuses are not errors at this layer; callers inspect
// Response.Success.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, error) {
	req := c.rc.R().SetContext(ctx).SetHeaders(headers)
	if len(body) > 0 {
		req.SetBody(body)
	}
	res, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: res.StatusCode(),
		Body:       res.Bytes(),
		Headers:    res.Header(),
	}, nil
}

// Close releases idle connections held by the underlying client.
func (c *Client) Close() error {
	return c.rc.Close()
}
