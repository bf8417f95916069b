package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestCacheReadMissing(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	value, found, err := c.Read("redirect", "https://example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestCacheWriteRead(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	require.NoError(t, c.Write("redirect", "https://a.example", strptr("https://b.example")))

	value, found, err := c.Read("redirect", "https://a.example")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, value)
	assert.Equal(t, "https://b.example", *value)
}

func TestCacheNullValueDistinctFromMissing(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	require.NoError(t, c.Write("fetch", "https://a.example", nil))

	value, found, err := c.Read("fetch", "https://a.example")
	require.NoError(t, err)
	assert.True(t, found, "a stored nil value is still a hit")
	assert.Nil(t, value)
}

func TestCacheOverwrite(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	require.NoError(t, c.Write("redirect", "k", strptr("first")))
	require.NoError(t, c.Write("redirect", "k", strptr("second")))

	value, found, err := c.Read("redirect", "k")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, value)
	assert.Equal(t, "second", *value)
}

func TestCacheCategoriesAreIndependent(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	require.NoError(t, c.Write("redirect", "k", strptr("v")))

	_, found, err := c.Read("fetch", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheCreatesFileLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c := New(path)
	defer c.Close()

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "constructing a cache must not touch the disk")

	require.NoError(t, c.Write("redirect", "k", strptr("v")))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	first := New(path)
	require.NoError(t, first.Write("redirect", "k", strptr("v")))
	require.NoError(t, first.Close())

	second := New(path)
	defer second.Close()
	value, found, err := second.Read("redirect", "k")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, value)
	assert.Equal(t, "v", *value)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(InMemory)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			if err := c.Write("redirect", key, strptr(key)); err != nil {
				t.Error(err)
				return
			}
			value, found, err := c.Read("redirect", key)
			if err != nil || !found || value == nil || *value != key {
				t.Errorf("Read(%q) = (%v, %v, %v)", key, value, found, err)
			}
		}(i)
	}
	wg.Wait()
}
