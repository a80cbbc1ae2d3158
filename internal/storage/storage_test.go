package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	require.NoError(t, err)

	_, ok := s.Get("missing")
	require.False(t, ok)

	require.NoError(t, s.Put("k", "v1"))
	require.NoError(t, s.Put("k", "v2"))
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v2", v)

	// Reopening reads what was flushed.
	s2, err := Open(path)
	require.NoError(t, err)
	v, ok = s2.Get("k")
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestFileStoreRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Put("k", "v"))
	require.NoError(t, s.Remove("k"))
	require.NoError(t, s.Remove("k"))

	_, ok := s.Get("k")
	require.False(t, ok)

	s2, err := Open(path)
	require.NoError(t, err)
	_, ok = s2.Get("k")
	require.False(t, ok)
}

func TestFileStoreCreatesMissingDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "state.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", "v"))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFileStoreCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	_, ok := s.Get("k")
	require.False(t, ok)
	require.NoError(t, s.Put("k", "v"))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	_, ok := m.Get("k")
	require.False(t, ok)

	require.NoError(t, m.Put("k", "v"))
	v, ok := m.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, m.Remove("k"))
	_, ok = m.Get("k")
	require.False(t, ok)
}
