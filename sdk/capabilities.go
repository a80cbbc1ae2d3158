package sdk

import (
	"context"

	"github.com/mohn93/ulink-go/internal/device"
	"github.com/mohn93/ulink-go/internal/transport"
)

// Transport performs HTTP requests for the SDK. The default implementation
// lives in internal/transport; tests and hosts may inject their own.
type Transport interface {
	Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*transport.Response, error)
}

// Storage is the durable key/value capability backing installation identity,
// tokens, and last-link state. Implementations must be safe for concurrent
// use.
type Storage interface {
	Get(key string) (string, bool)
	Put(key, value string) error
	Remove(key string) error
}

// DeviceInfoProvider supplies device facts for telemetry and fingerprinting.
type DeviceInfoProvider interface {
	DeviceInfo() device.Info
}

// ReferrerSource exposes the platform install-referrer channel. The call may
// block for one round-trip; an error or empty result is treated as "no
// referrer available".
type ReferrerSource interface {
	InstallReferrer() (string, error)
}

// LifecycleHooks are the callbacks a LifecycleSource invokes on host app
// transitions.
type LifecycleHooks struct {
	OnForeground func()
	OnBackground func()
	OnIntent     func(uri string)
}

// LifecycleSource is the host-side event source for app lifecycle
// transitions. The host registers the SDK's hooks against its own
// Activity/Application callbacks (or any equivalent); Subscribe returns a
// cancel func the SDK calls on Dispose.
type LifecycleSource interface {
	Subscribe(hooks LifecycleHooks) (cancel func())
}

// Listener is an optional coarse-grained observer for SDK events. Methods
// are invoked on the SDK callback queue and must not block.
type Listener interface {
	OnDynamicLink(data ResolvedLinkData)
	OnUnifiedLink(data ResolvedLinkData)
	OnReinstall(info InstallationInfo)
	// OnError receives operational failures: bootstrap errors, deep link
	// resolution failures, and deferred match failures.
	OnError(message string)
}
