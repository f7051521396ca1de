package sw

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	http "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/Memphis465/nova/internal/errors"
)

func storageFactories(t *testing.T) map[string]func(t *testing.T) CacheStorage {
	t.Helper()
	return map[string]func(t *testing.T) CacheStorage{
		"memory": func(t *testing.T) CacheStorage {
			return NewMemoryStorage(16)
		},
		"sqlite": func(t *testing.T) CacheStorage {
			s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func entry(url, body string) *CachedResponse {
	return &CachedResponse{
		URL:        url,
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

func TestCacheStorage_Contract(t *testing.T) {
	for name, newStorage := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			has, err := s.Has(ctx, "nova-v1")
			require.NoError(t, err)
			assert.False(t, has)

			v1, err := s.Open(ctx, "nova-v1")
			require.NoError(t, err)
			v2, err := s.Open(ctx, "nova-v2")
			require.NoError(t, err)

			names, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"nova-v1", "nova-v2"}, names)

			require.NoError(t, v1.Put(ctx, entry("http://x/a", `"old"`)))
			require.NoError(t, v1.Put(ctx, entry("http://x/a", `"new"`)))
			require.NoError(t, v2.Put(ctx, entry("http://x/a", `"v2"`)))
			require.NoError(t, v2.Put(ctx, entry("http://x/b", `"b"`)))

			got, err := v1.Match(ctx, "http://x/a")
			require.NoError(t, err)
			assert.Equal(t, `"new"`, string(got.Body))
			assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

			// storage-wide match takes the oldest cache first
			got, err = s.Match(ctx, "http://x/a")
			require.NoError(t, err)
			assert.Equal(t, `"new"`, string(got.Body))

			got, err = s.Match(ctx, "http://x/b")
			require.NoError(t, err)
			assert.Equal(t, `"b"`, string(got.Body))

			_, err = s.Match(ctx, "http://x/missing")
			assert.True(t, apierrors.IsCacheMiss(err))

			keys, err := v2.Keys(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"http://x/a", "http://x/b"}, keys)

			removed, err := v2.Delete(ctx, "http://x/b")
			require.NoError(t, err)
			assert.True(t, removed)
			_, err = v2.Match(ctx, "http://x/b")
			assert.True(t, apierrors.IsCacheMiss(err))

			deleted, err := s.Delete(ctx, "nova-v1")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = s.Delete(ctx, "nova-v1")
			require.NoError(t, err)
			assert.False(t, deleted)

			got, err = s.Match(ctx, "http://x/a")
			require.NoError(t, err)
			assert.Equal(t, `"v2"`, string(got.Body))

			// reopening a deleted cache starts empty
			v1, err = s.Open(ctx, "nova-v1")
			require.NoError(t, err)
			_, err = v1.Match(ctx, "http://x/a")
			assert.True(t, apierrors.IsCacheMiss(err))
		})
	}
}

func TestCachedResponse_IndependentBodies(t *testing.T) {
	e := entry("http://x/a", "payload")
	req, err := http.NewRequest(http.MethodGet, "http://x/a", nil)
	require.NoError(t, err)

	first := e.Response(req)
	second := e.Response(req)
	a, err := io.ReadAll(first.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(second.Body)
	require.NoError(t, err)

	assert.Equal(t, "payload", string(a))
	assert.Equal(t, "payload", string(b))
	assert.Equal(t, "200 OK", first.Status)

	first.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, "application/json", e.Header.Get("Content-Type"))
}

func TestMemoryStorage_BoundedPerCache(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(2)
	c, err := s.Open(ctx, "nova-v1")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, entry("http://x/1", "1")))
	require.NoError(t, c.Put(ctx, entry("http://x/2", "2")))
	require.NoError(t, c.Put(ctx, entry("http://x/3", "3")))

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x/2", "http://x/3"}, keys)
}

func TestMemoryStorage_PutCopiesBody(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(0)
	c, err := s.Open(ctx, "nova-v1")
	require.NoError(t, err)

	e := entry("http://x/a", "abc")
	require.NoError(t, c.Put(ctx, e))
	e.Body[0] = 'z'

	got, err := c.Match(ctx, "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got.Body))
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	c, err := s.Open(ctx, "nova-v1")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, entry("http://x/api/history", `{"history":[]}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	has, err := s.Has(ctx, "nova-v1")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.Match(ctx, "http://x/api/history")
	require.NoError(t, err)
	assert.Equal(t, `{"history":[]}`, string(got.Body))
	assert.Equal(t, 200, got.StatusCode)
}
