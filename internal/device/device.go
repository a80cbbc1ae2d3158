// Package device supplies device facts used for telemetry, fingerprinting,
// and reinstall detection.
//
// The SDK treats device information as a pure data-gathering collaborator:
// mobile hosts inject a provider backed by the platform APIs, while the
// bundled HostProvider fills in what a plain Go process can know about
// itself (tests, CLI tools).
package device

import (
	"encoding/hex"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Info is a snapshot of device, screen, and locale facts.
type Info struct {
	Platform     string
	OSVersion    string
	Model        string
	Brand        string
	Device       string
	Manufacturer string
	Product      string
	HardwareID   string

	ScreenWidthPx  int
	ScreenHeightPx int
	ScreenDensity  float64

	TimezoneID  string
	LanguageTag string
	NetworkType string

	BatteryLevel int
	AppVersion   string
}

// Provider supplies device facts on demand.
type Provider interface {
	DeviceInfo() Info
}

// HostProvider is a best-effort provider for plain Go hosts.
type HostProvider struct{}

// NewHostProvider creates a provider backed by the local process environment.
func NewHostProvider() *HostProvider {
	return &HostProvider{}
}

// DeviceInfo returns what the host process can observe about itself.
func (p *HostProvider) DeviceInfo() Info {
	host, _ := os.Hostname()
	return Info{
		Platform:    runtime.GOOS,
		Model:       host,
		HardwareID:  host,
		TimezoneID:  timezoneID(),
		LanguageTag: languageTag(),
	}
}

// PersistentID derives a stable device identifier from hardware facts that
// survive app reinstalls. Returns "" when no stable material is available.
func PersistentID(info Info) string {
	fields := []string{
		info.Model,
		info.Brand,
		info.Device,
		info.Manufacturer,
		info.Product,
		info.HardwareID,
	}
	material := strings.Join(fields, "|")
	if strings.Trim(material, "|") == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// CSSPixels converts physical pixels to CSS pixels the way a browser reports
// window.screen: physical size divided by density, rounded to the nearest
// integer. A non-positive density leaves the value untouched.
func CSSPixels(px int, density float64) int {
	if density <= 0 {
		return px
	}
	return int(math.Round(float64(px) / density))
}

func timezoneID() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}
	return time.Now().Location().String()
}

// languageTag converts a POSIX locale ("en_US.UTF-8") to a BCP 47 language
// tag ("en-US").
func languageTag() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		if i := strings.IndexByte(raw, '.'); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.ReplaceAll(raw, "_", "-")
		if raw != "" && raw != "C" && raw != "POSIX" {
			return raw
		}
	}
	return "en-US"
}
