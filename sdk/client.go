// Package sdk is the ULink client SDK: it creates and resolves deep links
// against the ULink API while tracking installations, sessions, and
// reinstalls locally.
//
// A Client is a handle created by New and activated by Initialize. Hosts are
// expected to keep at most one fully-initialized Client per process; the SDK
// does not enforce cross-instance coordination over shared storage.
package sdk

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mohn93/ulink-go/internal/device"
	"github.com/mohn93/ulink-go/internal/storage"
	"github.com/mohn93/ulink-go/internal/transport"
)

// Version is the SDK release version reported to the backend.
const Version = "1.3.0"

const (
	defaultBaseURL = "https://api.ulink.ly"

	// defaultDeferredMatchURL is intentionally absolute: deferred matching
	// always runs against the production matcher, independent of the
	// configured base URL.
	defaultDeferredMatchURL = "https://api.ulink.ly/sdk/deferred/match"

	defaultDispatcherQueueSize = 256
	debugLogReplayDepth        = 64
)

const (
	headerAppKey            = "X-App-Key"
	headerContentType       = "Content-Type"
	headerInstallationID    = "X-Installation-Id"
	headerInstallationToken = "X-Installation-Token"
	headerDeviceID          = "X-Device-Id"
	headerClient            = "X-ULink-Client"
	headerClientVersion     = "X-ULink-Client-Version"
	headerClientPlatform    = "X-ULink-Client-Platform"

	// responseHeaderInstallationToken is lowercase because proxies rewrite
	// header case; lookups go through http.Header which canonicalizes.
	responseHeaderInstallationToken = "x-installation-token"

	contentTypeJSON = "application/json"

	clientName     = "sdk-android"
	clientPlatform = "android"
)

// Persisted local state keys.
const (
	storageKeyInstallationID    = "ulink_installation_id"
	storageKeyInstallationToken = "ulink_installation_token"
	storageKeyLastLink          = "ulink_last_link"
	storageKeyLastLinkSavedAt   = "ulink_last_link_saved_at"
	storageKeyDeferredChecked   = "ulink_deferred_checked"
)

// Config is the SDK configuration surface. Only APIKey is required; boolean
// knobs are named so the zero value matches the default behavior.
type Config struct {
	// APIKey authenticates the app against the ULink backend (X-App-Key).
	APIKey string
	// BaseURL overrides the API base URL. Defaults to the production API.
	BaseURL string
	// Debug enables verbose logging and the in-SDK debug log channel.
	Debug bool

	// DisableAutoLinkInterception stops the SDK from dispatching intent
	// URIs delivered through the lifecycle source.
	DisableAutoLinkInterception bool
	// DisableDeferredLinkCheck skips the one-shot deferred deep link match
	// after the first successful bootstrap.
	DisableDeferredLinkCheck bool

	// DisableLastLinkPersistence turns off last-link storage entirely.
	DisableLastLinkPersistence bool
	// LastLinkTTLSeconds expires the persisted last link this many seconds
	// after it was saved. Zero means no expiry.
	LastLinkTTLSeconds int64
	// ClearLastLinkOnRead deletes the last link after its first successful
	// read through LastLink.
	ClearLastLinkOnRead bool
	// RedactAllLastLinkParameters omits parameters and metadata from the
	// persisted last link.
	RedactAllLastLinkParameters bool
	// RedactedLastLinkKeys strips the listed keys from persisted last-link
	// parameters and metadata.
	RedactedLastLinkKeys []string

	// LogDir is where SDK log files are written. Empty keeps logs
	// in-memory (and on stderr) only.
	LogDir string
}

type bootstrapStatus struct {
	completed           bool
	succeeded           bool
	pendingSessionStart bool
	lastErr             error
}

// Client is the SDK handle. All exported methods are safe for concurrent
// use; session transitions are serialized on an internal dispatch queue and
// listener callbacks are delivered on a separate callback queue.
type Client struct {
	cfg Config

	transport  Transport
	storage    Storage
	deviceInfo DeviceInfoProvider
	referrer   ReferrerSource
	lifecycle  LifecycleSource
	now        func() time.Time

	mu               sync.Mutex
	installID        string
	installToken     string
	installInfo      *InstallationInfo
	boot             bootstrapStatus
	bootInFlight     bool
	bootDone         chan struct{}
	sessionState     SessionState
	currentSessionID string
	lastLink         *ResolvedLinkData
	listener         Listener
	lifecycleCancel  func()
	disposed         bool

	deferredMatchURL string

	dispatch  *dispatcher
	callbacks *dispatcher
	logs      *logManager
	validate  *validator.Validate

	dynamicLinks *eventChannel[ResolvedLinkData]
	unifiedLinks *eventChannel[ResolvedLinkData]
	reinstalls   *eventChannel[InstallationInfo]
	debugLogs    *eventChannel[string]
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithTransport injects the HTTP transport collaborator.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithStorage injects the durable key/value collaborator.
func WithStorage(s Storage) Option {
	return func(c *Client) { c.storage = s }
}

// WithDeviceInfoProvider injects the device fact collaborator.
func WithDeviceInfoProvider(p DeviceInfoProvider) Option {
	return func(c *Client) { c.deviceInfo = p }
}

// WithReferrerSource injects the install-referrer capability.
func WithReferrerSource(r ReferrerSource) Option {
	return func(c *Client) { c.referrer = r }
}

// WithLifecycleSource binds the host app lifecycle event source.
func WithLifecycleSource(l LifecycleSource) Option {
	return func(c *Client) { c.lifecycle = l }
}

// WithListener registers the coarse-grained event listener.
func WithListener(l Listener) Option {
	return func(c *Client) { c.listener = l }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates an SDK handle. The handle performs no network I/O until
// Initialize is called.
func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	c := &Client{
		cfg:              cfg,
		now:              time.Now,
		sessionState:     SessionIdle,
		deferredMatchURL: defaultDeferredMatchURL,
		dispatch:         newDispatcher(defaultDispatcherQueueSize),
		callbacks:        newDispatcher(defaultDispatcherQueueSize),
		logs:             newLogManager(),
		validate:         validator.New(),
		dynamicLinks:     newEventChannel[ResolvedLinkData](0),
		unifiedLinks:     newEventChannel[ResolvedLinkData](0),
		reinstalls:       newEventChannel[InstallationInfo](1),
		debugLogs:        newEventChannel[string](debugLogReplayDepth),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.LogDir != "" {
		if err := c.logs.setDir(cfg.LogDir); err != nil {
			c.warnf("open log dir: %v", err)
		}
	}
	if c.transport == nil {
		c.transport = transport.New()
	}
	if c.deviceInfo == nil {
		c.deviceInfo = device.NewHostProvider()
	}
	if c.storage == nil {
		store, err := storage.Open(defaultStatePath())
		if err != nil {
			c.warnf("open state store, falling back to memory: %v", err)
			c.storage = storage.NewMemory()
		} else {
			c.storage = store
		}
	}
	if c.lifecycle != nil {
		c.bindLifecycle(c.lifecycle)
	}
	return c
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ulink", "state.json")
}

func (c *Client) bindLifecycle(src LifecycleSource) {
	hooks := LifecycleHooks{
		OnForeground: c.AppForegrounded,
		OnBackground: c.AppBackgrounded,
	}
	if !c.cfg.DisableAutoLinkInterception {
		hooks.OnIntent = c.HandleIntent
	}
	cancel := src.Subscribe(hooks)
	c.mu.Lock()
	c.lifecycleCancel = cancel
	c.mu.Unlock()
}

// SetListener replaces the coarse-grained event listener.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Client) getListener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

// notifyError delivers an operational failure to the listener on the
// callback queue.
func (c *Client) notifyError(message string) {
	if l := c.getListener(); l != nil {
		_ = c.callbacks.do(func() { l.OnError(message) })
	}
}

// GetSessionState returns the current session machine state.
func (c *Client) GetSessionState() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionState
}

// CurrentSessionID returns the session id, or "" when no session is open.
func (c *Client) CurrentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSessionID
}

// HasActiveSession reports whether a session id is set. Bootstrap can set
// the session id without driving the session state machine, so this signal
// and GetSessionState may briefly disagree right after Initialize; both are
// kept for compatibility with existing host apps.
func (c *Client) HasActiveSession() bool {
	return c.CurrentSessionID() != ""
}

// GetInstallationInfo returns the reinstall-detection result of the last
// successful bootstrap, or nil before bootstrap.
func (c *Client) GetInstallationInfo() *InstallationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installInfo
}

// DynamicLinks subscribes to resolved dynamic links.
func (c *Client) DynamicLinks() (<-chan ResolvedLinkData, func()) {
	return c.dynamicLinks.subscribe()
}

// UnifiedLinks subscribes to resolved unified links.
func (c *Client) UnifiedLinks() (<-chan ResolvedLinkData, func()) {
	return c.unifiedLinks.subscribe()
}

// ReinstallEvents subscribes to reinstall detections. The last event is
// replayed to a new subscriber so late subscriptions still observe it.
func (c *Client) ReinstallEvents() (<-chan InstallationInfo, func()) {
	return c.reinstalls.subscribe()
}

// Dispose tears the handle down: unregisters from the lifecycle source,
// attempts a best-effort session end, closes all event channels, and stops
// the internal queues. The handle is unusable afterwards.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	cancel := c.lifecycleCancel
	c.lifecycleCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Best-effort session end; failures are logged by endSession itself.
	_, _ = c.dispatch.call(func() (any, error) {
		if c.GetSessionState() == SessionActive {
			c.endSession()
		}
		return nil, nil
	})

	c.dynamicLinks.close()
	c.unifiedLinks.close()
	c.reinstalls.close()
	c.debugLogs.close()
	c.dispatch.stop()
	c.callbacks.stop()
	c.logs.closeFile()
	if closer, ok := c.transport.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// clientHeaders is the identity header set carried on every API call.
func (c *Client) clientHeaders() map[string]string {
	return map[string]string{
		headerAppKey:         c.cfg.APIKey,
		headerContentType:    contentTypeJSON,
		headerClient:         clientName,
		headerClientVersion:  Version,
		headerClientPlatform: clientPlatform,
	}
}

// bootstrapHeaders adds the conditional installation and device identity
// headers used by bootstrap and session calls.
func (c *Client) bootstrapHeaders() map[string]string {
	h := c.clientHeaders()
	if id := c.installationID(); id != "" {
		h[headerInstallationID] = id
	}
	if deviceID := device.PersistentID(c.deviceInfo.DeviceInfo()); deviceID != "" {
		h[headerDeviceID] = deviceID
	}
	return h
}

// linkHeaders prefers the server-issued installation token over the raw
// installation id for link operations.
func (c *Client) linkHeaders() map[string]string {
	h := c.clientHeaders()
	if token := c.installationToken(); token != "" {
		h[headerInstallationToken] = token
	} else if id := c.installationID(); id != "" {
		h[headerInstallationID] = id
	}
	if deviceID := device.PersistentID(c.deviceInfo.DeviceInfo()); deviceID != "" {
		h[headerDeviceID] = deviceID
	}
	return h
}
