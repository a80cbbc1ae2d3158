package sdk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohn93/ulink-go/internal/storage"
)

func resolvedLink(params map[string]any) ResolvedLinkData {
	raw := map[string]any{
		"slug":        "promo",
		"type":        "dynamic",
		"fallbackUrl": "https://example.com",
	}
	if params != nil {
		raw["parameters"] = params
	}
	return parseResolvedLinkData(raw)
}

func TestLastLinkPersistsAndReloads(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler, WithStorage(store))

	data := resolvedLink(map[string]any{"campaign": "summer"})
	data.IsDeferred = true
	data.MatchType = "fingerprint"
	c.saveLastLink(data)

	// A fresh client over the same storage reconstructs the record.
	c2, _ := newTestClient(t, Config{DisableDeferredLinkCheck: true}, bootstrapHandler, WithStorage(store))
	got := c2.LastLink()
	require.NotNil(t, got)
	require.Equal(t, "promo", got.Slug)
	require.Equal(t, "summer", got.Parameters["campaign"])
	require.True(t, got.IsDeferred)
	require.Equal(t, "fingerprint", got.MatchType)
}

func TestLastLinkTTLExpiryDeletesRecord(t *testing.T) {
	store := storage.NewMemory()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, LastLinkTTLSeconds: 60},
		bootstrapHandler, WithStorage(store), withClock(func() time.Time { return now }))

	c.saveLastLink(resolvedLink(nil))

	// Within the TTL the record is readable from a cold cache.
	c2, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, LastLinkTTLSeconds: 60},
		bootstrapHandler, WithStorage(store), withClock(func() time.Time { return now.Add(30 * time.Second) }))
	require.NotNil(t, c2.LastLink())

	// Past the TTL the read deletes the record.
	c3, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, LastLinkTTLSeconds: 60},
		bootstrapHandler, WithStorage(store), withClock(func() time.Time { return now.Add(61 * time.Second) }))
	require.Nil(t, c3.LastLink())
	_, ok := store.Get(storageKeyLastLink)
	require.False(t, ok)
	_, ok = store.Get(storageKeyLastLinkSavedAt)
	require.False(t, ok)
}

func TestLastLinkRedactAllOmitsParametersAndMetadata(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, RedactAllLastLinkParameters: true},
		bootstrapHandler, WithStorage(store))

	data := parseResolvedLinkData(map[string]any{
		"slug":       "promo",
		"parameters": map[string]any{"token": "secret"},
		"metadata":   map[string]any{"internal": true},
	})
	c.saveLastLink(data)

	raw, ok := store.Get(storageKeyLastLink)
	require.True(t, ok)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.NotContains(t, persisted, "parameters")
	require.NotContains(t, persisted, "metadata")
	require.Equal(t, "promo", persisted["slug"])
}

func TestLastLinkBlockListStripsOnlyListedKeys(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, RedactedLastLinkKeys: []string{"token"}},
		bootstrapHandler, WithStorage(store))

	data := parseResolvedLinkData(map[string]any{
		"slug":       "promo",
		"parameters": map[string]any{"token": "secret", "id": "y"},
	})
	c.saveLastLink(data)

	raw, ok := store.Get(storageKeyLastLink)
	require.True(t, ok)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	params, ok := persisted["parameters"].(map[string]any)
	require.True(t, ok)
	require.NotContains(t, params, "token")
	require.Equal(t, "y", params["id"])
}

func TestLastLinkClearOnRead(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, ClearLastLinkOnRead: true},
		bootstrapHandler, WithStorage(store))

	c.saveLastLink(resolvedLink(nil))

	first := c.LastLink()
	require.NotNil(t, first)
	require.Nil(t, c.LastLink())
	_, ok := store.Get(storageKeyLastLink)
	require.False(t, ok)
}

func TestLastLinkPersistenceDisabled(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestClient(t,
		Config{DisableDeferredLinkCheck: true, DisableLastLinkPersistence: true},
		bootstrapHandler, WithStorage(store))

	c.saveLastLink(resolvedLink(nil))

	// The in-memory cache still serves within the process.
	require.NotNil(t, c.LastLink())
	_, ok := store.Get(storageKeyLastLink)
	require.False(t, ok)
}
