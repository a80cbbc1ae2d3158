package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSSPixels(t *testing.T) {
	// Pixel 8 portrait: 1080x2400 physical at density 2.625.
	require.Equal(t, 411, CSSPixels(1080, 2.625))
	require.Equal(t, 914, CSSPixels(2400, 2.625))

	// Density 1 and unknown density leave the value untouched.
	require.Equal(t, 800, CSSPixels(800, 1))
	require.Equal(t, 800, CSSPixels(800, 0))
	require.Equal(t, 800, CSSPixels(800, -2))
}

func TestPersistentIDStable(t *testing.T) {
	info := Info{
		Model:        "Pixel 8",
		Brand:        "google",
		Device:       "shiba",
		Manufacturer: "Google",
		Product:      "shiba",
		HardwareID:   "hw-1234",
	}
	a := PersistentID(info)
	b := PersistentID(info)
	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	// Volatile facts do not perturb the id.
	changed := info
	changed.OSVersion = "15"
	changed.BatteryLevel = 17
	require.Equal(t, a, PersistentID(changed))

	// Hardware facts do.
	other := info
	other.HardwareID = "hw-9999"
	require.NotEqual(t, a, PersistentID(other))
}

func TestPersistentIDEmptyWithoutMaterial(t *testing.T) {
	require.Empty(t, PersistentID(Info{}))
	require.Empty(t, PersistentID(Info{OSVersion: "14", TimezoneID: "UTC"}))
}

func TestHostProviderFillsBasics(t *testing.T) {
	info := NewHostProvider().DeviceInfo()
	require.NotEmpty(t, info.Platform)
	require.NotEmpty(t, info.TimezoneID)
	require.NotEmpty(t, info.LanguageTag)
}
