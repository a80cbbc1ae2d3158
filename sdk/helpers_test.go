package sdk

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/mohn93/ulink-go/internal/device"
	"github.com/mohn93/ulink-go/internal/storage"
	"github.com/mohn93/ulink-go/internal/transport"
)

type fakeCall struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(method, url string, body []byte, headers map[string]string) (*transport.Response, error)
}

func (f *fakeTransport) Do(_ context.Context, method, url string, body []byte, headers map[string]string) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Method: method, URL: url, Body: body, Headers: headers})
	f.mu.Unlock()
	return f.handler(method, url, body, headers)
}

func (f *fakeTransport) callsTo(pathFragment string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, call := range f.calls {
		if strings.Contains(call.URL, pathFragment) {
			out = append(out, call)
		}
	}
	return out
}

func jsonResponse(status int, body string) *transport.Response {
	return &transport.Response{
		StatusCode: status,
		Body:       []byte(body),
		Headers:    http.Header{},
	}
}

type staticDevice struct {
	info device.Info
}

func (d staticDevice) DeviceInfo() device.Info {
	return d.info
}

func testDeviceInfo() device.Info {
	return device.Info{
		Platform:       "android",
		OSVersion:      "14",
		Model:          "Pixel 8",
		Brand:          "google",
		Device:         "shiba",
		Manufacturer:   "Google",
		Product:        "shiba",
		HardwareID:     "hw-1234",
		ScreenWidthPx:  1080,
		ScreenHeightPx: 2400,
		ScreenDensity:  2.625,
		TimezoneID:     "Europe/Budapest",
		LanguageTag:    "en-US",
	}
}

type fakeReferrer struct {
	payload string
	err     error
}

func (r fakeReferrer) InstallReferrer() (string, error) {
	return r.payload, r.err
}

// newTestClient builds a client against a scripted transport, an in-memory
// store, and fixed device facts. Deferred matching is left to the tests that
// exercise it.
func newTestClient(t *testing.T, cfg Config, handler func(method, url string, body []byte, headers map[string]string) (*transport.Response, error), opts ...Option) (*Client, *fakeTransport) {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "test-api-key"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.test"
	}
	ft := &fakeTransport{handler: handler}
	base := []Option{
		WithTransport(ft),
		WithStorage(storage.NewMemory()),
		WithDeviceInfoProvider(staticDevice{info: testDeviceInfo()}),
	}
	c := New(cfg, append(base, opts...)...)
	t.Cleanup(c.Dispose)
	return c, ft
}

// bootstrapHandler serves a minimal happy path for bootstrap, session start,
// and session end, and 404s everything else.
func bootstrapHandler(method, url string, body []byte, headers map[string]string) (*transport.Response, error) {
	switch {
	case strings.Contains(url, "/sdk/bootstrap"):
		return jsonResponse(200, `{"installationToken":"tok-1"}`), nil
	case strings.Contains(url, "/sdk/sessions/start"):
		return jsonResponse(200, `{"sessionId":"sess-1"}`), nil
	case strings.Contains(url, "/end"):
		return jsonResponse(200, `{}`), nil
	default:
		return jsonResponse(404, `{}`), nil
	}
}
