package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileYieldsEmptyCache(t *testing.T) {
	cache := Open(filepath.Join(t.TempDir(), "missing_store.json"))
	assert.Equal(t, 0, cache.Len())
}

func TestOpen_CorruptFileIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	cache := Open(path)
	assert.Equal(t, 0, cache.Len())
}

func TestPutGet(t *testing.T) {
	cache := Open(filepath.Join(t.TempDir(), "a_store.json"))

	cache.Put("123@s.whatsapp.net", "MSG1", []byte("payload"))

	raw, ok := cache.Get("123@s.whatsapp.net", "MSG1")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), raw)

	_, ok = cache.Get("123@s.whatsapp.net", "MSG2")
	assert.False(t, ok)
	_, ok = cache.Get("456@s.whatsapp.net", "MSG1")
	assert.False(t, ok)
}

func TestPut_IgnoresEmptyInput(t *testing.T) {
	cache := Open(filepath.Join(t.TempDir(), "a_store.json"))

	cache.Put("", "MSG1", []byte("x"))
	cache.Put("123@s.whatsapp.net", "", []byte("x"))
	cache.Put("123@s.whatsapp.net", "MSG1", nil)

	assert.Equal(t, 0, cache.Len())
}

func TestFlush_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a_store.json")

	cache := Open(path)
	cache.Put("123@s.whatsapp.net", "MSG1", []byte("payload"))
	require.NoError(t, cache.Flush())

	reloaded := Open(path)
	raw, ok := reloaded.Get("123@s.whatsapp.net", "MSG1")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), raw)
}

func TestFlush_SkipsWriteWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a_store.json")

	cache := Open(path)
	cache.Put("123@s.whatsapp.net", "MSG1", []byte("payload"))
	require.NoError(t, cache.Flush())

	info1, err := os.Stat(path)
	require.NoError(t, err)

	// Nothing changed; the file must be left untouched.
	require.NoError(t, cache.Flush())
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}
