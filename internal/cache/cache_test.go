package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsnatch/docsnatch/internal/domain"
)

const previewURL = "https://docs.google.com/spreadsheets/d/abc123/htmlview"

// TestDefaultOptions tests the zero-value starting options
func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Empty(t, opts.Directory)
	assert.False(t, opts.InMemory)
	assert.False(t, opts.Logger)
}

// TestGenerateKey tests key derivation from URLs
func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		check func(t *testing.T, key string)
	}{
		{
			name: "same URL hashes the same",
			url:  previewURL,
			check: func(t *testing.T, key string) {
				key2 := GenerateKey(previewURL)
				assert.Equal(t, key, key2)
			},
		},
		{
			name: "different gids hash apart",
			url:  "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
			check: func(t *testing.T, key string) {
				key2 := GenerateKey("https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=1")
				assert.NotEqual(t, key, key2)
			},
		},
		{
			name: "keys are sha256 hex",
			url:  previewURL,
			check: func(t *testing.T, key string) {
				assert.Equal(t, 64, len(key))
			},
		},
		{
			name: "unparseable input still yields a key",
			url:  ":not-a-url",
			check: func(t *testing.T, key string) {
				assert.NotEmpty(t, key)
				assert.Equal(t, 64, len(key))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateKey(tt.url)
			if tt.check != nil {
				tt.check(t, key)
			}
		})
	}
}

// TestNormalizeForKey tests URL canonicalization ahead of hashing
func TestNormalizeForKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "host case folds",
			input:    "https://DOCS.GOOGLE.COM/document/d/abc/mobilebasic",
			expected: "https://docs.google.com/document/d/abc/mobilebasic",
		},
		{
			name:     "trailing slash dropped",
			input:    "https://docs.google.com/document/d/abc/",
			expected: "https://docs.google.com/document/d/abc",
		},
		{
			name:     "keeps root slash",
			input:    "https://docs.google.com/",
			expected: "https://docs.google.com/",
		},
		{
			name:     "removes fragment",
			input:    "https://docs.google.com/document/d/abc/mobilebasic#heading",
			expected: "https://docs.google.com/document/d/abc/mobilebasic",
		},
		{
			name:     "query string is preserved",
			input:    "https://docs.google.com/spreadsheets/d/abc/export?format=csv&gid=7",
			expected: "https://docs.google.com/spreadsheets/d/abc/export?format=csv&gid=7",
		},
		{
			name:     "scheme defaults to https",
			input:    "docs.google.com/document/d/abc",
			expected: "https://docs.google.com/document/d/abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeForKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestNewBadgerCache tests opening the store in its supported modes
func TestNewBadgerCache(t *testing.T) {
	t.Run("in-memory store", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{
			InMemory: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, cache)
		cache.Close()
	})

	t.Run("on-disk store in a given directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		cache, err := NewBadgerCache(Options{
			Directory: tmpDir,
		})
		require.NoError(t, err)
		assert.NotNil(t, cache)
		cache.Close()
	})

	t.Run("on-disk store in the default location", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalHome := os.Getenv("HOME")
		defer func() {
			if originalHome != "" {
				os.Setenv("HOME", originalHome)
			} else {
				os.Unsetenv("HOME")
			}
		}()
		os.Setenv("HOME", tmpDir)

		cache, err := NewBadgerCache(Options{
			Directory: "",
		})
		require.NoError(t, err)
		assert.NotNil(t, cache)
		cache.Close()

		// The default directory should now exist
		cacheDir := tmpDir + "/.docsnatch/cache"
		_, err = os.Stat(cacheDir)
		assert.NoError(t, err)
	})
}

// TestBadgerCache_GetSet tests round-tripping values through the cache
func TestBadgerCache_GetSet(t *testing.T) {
	t.Run("miss on an unknown URL", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()
		value, err := cache.Get(ctx, "https://docs.google.com/document/d/missing/mobilebasic")

		assert.Error(t, err)
		assert.Nil(t, value)
	})

	t.Run("round-trips a stored body", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()
		value := []byte("<html><title>Budget</title></html>")

		err = cache.Set(ctx, previewURL, value, 1*time.Hour)
		require.NoError(t, err)

		retrieved, err := cache.Get(ctx, previewURL)
		assert.NoError(t, err)
		assert.Equal(t, value, retrieved)
	})

	t.Run("zero ttl stores without expiry", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()
		err = cache.Set(ctx, previewURL, []byte("content"), 0)
		assert.NoError(t, err)

		assert.True(t, cache.Has(ctx, previewURL))
	})

	t.Run("second Set replaces the first", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()

		err = cache.Set(ctx, previewURL, []byte("original"), 1*time.Hour)
		require.NoError(t, err)

		err = cache.Set(ctx, previewURL, []byte("updated"), 1*time.Hour)
		require.NoError(t, err)

		value, err := cache.Get(ctx, previewURL)
		assert.NoError(t, err)
		assert.Equal(t, []byte("updated"), value)
	})
}

// TestBadgerCache_Has tests existence probes
func TestBadgerCache_Has(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	assert.False(t, cache.Has(ctx, previewURL))

	err = cache.Set(ctx, previewURL, []byte("content"), 1*time.Hour)
	require.NoError(t, err)

	assert.True(t, cache.Has(ctx, previewURL))
}

// TestBadgerCache_Delete tests entry removal
func TestBadgerCache_Delete(t *testing.T) {
	t.Run("removes a stored entry", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()

		err = cache.Set(ctx, previewURL, []byte("content"), 1*time.Hour)
		require.NoError(t, err)

		err = cache.Delete(ctx, previewURL)
		assert.NoError(t, err)

		assert.False(t, cache.Has(ctx, previewURL))
	})

	t.Run("removing an absent entry is not an error", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		defer cache.Close()

		ctx := context.Background()
		err = cache.Delete(ctx, "https://docs.google.com/document/d/missing/mobilebasic")
		assert.NoError(t, err)
	})
}

// TestBadgerCache_Clear tests dropping the whole store
func TestBadgerCache_Clear(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	cache.Set(ctx, "https://docs.google.com/spreadsheets/d/a/htmlview", []byte("content1"), 1*time.Hour)
	cache.Set(ctx, "https://docs.google.com/spreadsheets/d/b/htmlview", []byte("content2"), 1*time.Hour)

	assert.Greater(t, cache.Size(), int64(0))

	err = cache.Clear()
	assert.NoError(t, err)

	assert.Equal(t, int64(0), cache.Size())
}

// TestBadgerCache_Size tests the entry count
func TestBadgerCache_Size(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	assert.Equal(t, int64(0), cache.Size())

	cache.Set(ctx, "https://docs.google.com/spreadsheets/d/a/htmlview", []byte("content1"), 1*time.Hour)
	cache.Set(ctx, "https://docs.google.com/spreadsheets/d/b/htmlview", []byte("content2"), 1*time.Hour)
	cache.Set(ctx, "https://docs.google.com/spreadsheets/d/c/htmlview", []byte("content3"), 1*time.Hour)

	assert.Equal(t, int64(3), cache.Size())
}

// TestBadgerCache_Stats tests the stats snapshot
func TestBadgerCache_Stats(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	cache.Set(ctx, previewURL, []byte("content"), 1*time.Hour)

	stats := cache.Stats()
	assert.NotNil(t, stats)
	assert.Contains(t, stats, "entries")
	assert.Contains(t, stats, "lsm_size")
	assert.Contains(t, stats, "vlog_size")
	assert.Equal(t, int64(1), stats["entries"])
}

// TestBadgerCache_Close tests lifecycle behavior after Close
func TestBadgerCache_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)

		assert.NoError(t, cache.Close())
		assert.NoError(t, cache.Close())
	})

	t.Run("operations on a closed cache report it", func(t *testing.T) {
		cache, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		require.NoError(t, cache.Close())

		_, err = cache.Get(context.Background(), previewURL)
		assert.ErrorIs(t, err, domain.ErrCacheClosed)

		err = cache.Set(context.Background(), previewURL, []byte("content"), 0)
		assert.ErrorIs(t, err, domain.ErrCacheClosed)
	})
}

// TestBadgerCache_Integration tests the full workflow
func TestBadgerCache_Integration(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	url := "https://docs.google.com/document/d/abc/mobilebasic"
	content := []byte("<div class=\"doc\">body</div>")

	// Miss before anything is stored
	_, err = cache.Get(ctx, url)
	assert.Error(t, err)

	// Write
	err = cache.Set(ctx, url, content, 1*time.Hour)
	assert.NoError(t, err)

	// Now visible
	assert.True(t, cache.Has(ctx, url))

	// Read back
	retrieved, err := cache.Get(ctx, url)
	assert.NoError(t, err)
	assert.Equal(t, content, retrieved)

	// Remove
	err = cache.Delete(ctx, url)
	assert.NoError(t, err)

	// And gone
	assert.False(t, cache.Has(ctx, url))
}

// TestBadgerCache_ConcurrentAccess tests parallel readers and writers
func TestBadgerCache_ConcurrentAccess(t *testing.T) {
	cache, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	done := make(chan bool)

	// Writers
	for i := 0; i < 50; i++ {
		go func(i int) {
			url := fmt.Sprintf("https://docs.google.com/spreadsheets/d/sheet%d/htmlview", i)
			cache.Set(ctx, url, []byte("content"), 1*time.Hour)
			done <- true
		}(i)
	}

	// Readers racing the writers
	for i := 0; i < 50; i++ {
		go func(i int) {
			url := fmt.Sprintf("https://docs.google.com/spreadsheets/d/sheet%d/htmlview", i)
			cache.Get(ctx, url)
			done <- true
		}(i)
	}

	// Drain both waves
	for i := 0; i < 100; i++ {
		<-done
	}

	// Every distinct URL written exactly once
	assert.Equal(t, int64(50), cache.Size())
}
