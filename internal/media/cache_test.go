package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarlosIrineuCosta/boxiii/internal/log"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(t.TempDir(), log.NullLogger())
	require.NoError(t, err)
	return c
}

func TestCache_AddAndFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := newTestCache(t)
	url := srv.URL + "/media/fish.jpg"

	assert.False(t, c.Has(url))
	require.NoError(t, c.Add(context.Background(), url))
	assert.True(t, c.Has(url))

	path, ok := c.Path(url)
	require.True(t, ok)
	assert.Equal(t, ".jpg", path[len(path)-4:], "original extension kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestCache_AddIsIdempotent(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("v"))
	}))
	defer srv.Close()

	c := newTestCache(t)
	url := srv.URL + "/a.png"
	require.NoError(t, c.Add(context.Background(), url))
	require.NoError(t, c.Add(context.Background(), url))

	assert.Equal(t, 2, hits, "re-adding refreshes the entry")
	assert.True(t, c.Has(url))
}

func TestCache_AddFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	c := newTestCache(t)
	url := srv.URL + "/gone.jpg"
	assert.Error(t, c.Add(context.Background(), url))
	assert.False(t, c.Has(url), "failed fetch must not leave a cache hit")
}

func TestCache_RemoveAndEvict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("v"))
	}))
	defer srv.Close()

	c := newTestCache(t)
	a, b := srv.URL+"/a.jpg", srv.URL+"/b.jpg"
	require.NoError(t, c.Add(context.Background(), a))
	require.NoError(t, c.Add(context.Background(), b))

	require.NoError(t, c.Remove(a))
	assert.False(t, c.Has(a))
	assert.NoError(t, c.Remove(a), "removing an absent entry is not an error")

	c.Evict([]string{b})
	assert.False(t, c.Has(b))
}

func TestCache_DistinctURLsDistinctEntries(t *testing.T) {
	c := newTestCache(t)
	p1 := c.entryPath("https://cdn.example/a.jpg")
	p2 := c.entryPath("https://cdn.example/b.jpg")
	assert.NotEqual(t, p1, p2)

	// Same URL always maps to the same entry.
	assert.Equal(t, p1, c.entryPath("https://cdn.example/a.jpg"))
}
