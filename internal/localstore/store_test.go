package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", FileName))
	require.NoError(t, err)
	return store
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	value, ok, err := store.Get("nova_theme")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStore_SetGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("nova_theme", "light"))

	value, ok, err := store.Get("nova_theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", value)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	a, err := New(path)
	require.NoError(t, err)
	b, err := New(path)
	require.NoError(t, err)

	require.NoError(t, a.Set("nova_history", `[{"role":"user","message":"hi"}]`))

	value, ok, err := b.Get("nova_history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"role":"user","message":"hi"}]`, value)
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", "2"))
	require.NoError(t, store.Remove("a"))
	require.NoError(t, store.Remove("missing"))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{oops"), 0o600))

	_, _, err := store.Get("nova_theme")
	assert.Error(t, err)
}

func TestStore_Watch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("nova_theme", "dark"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	require.NoError(t, store.Watch(ctx, "nova_theme", func(value string, ok bool) {
		changes <- value
	}))

	other, err := New(store.Path())
	require.NoError(t, err)
	require.NoError(t, other.Set("unrelated", "x"))
	require.NoError(t, other.Set("nova_theme", "light"))

	select {
	case v := <-changes:
		assert.Equal(t, "light", v)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for theme change")
	}
}
