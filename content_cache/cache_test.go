package content_cache

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

type fakeHandle struct {
	content string
	size    int64
	readErr error
	reads   atomic.Int32
}

func (h *fakeHandle) Size() (int64, error) {
	if h.size > 0 {
		return h.size, nil
	}
	return int64(len(h.content)), nil
}

func (h *fakeHandle) Read() ([]byte, error) {
	h.reads.Add(1)
	if h.readErr != nil {
		return nil, h.readErr
	}
	return []byte(h.content), nil
}

func newEntry(path, content string) (*models.FileEntry, *fakeHandle) {
	h := &fakeHandle{content: content}
	return &models.FileEntry{Name: path, Path: path, Size: int64(len(content)), Handle: h}, h
}

func TestContentCache_HitSkipsHandle(t *testing.T) {
	cache := New(Options{})
	entry, handle := newEntry("a.go", "package a")

	first, err := cache.Get(entry)
	require.NoError(t, err)
	second, err := cache.Get(entry)
	require.NoError(t, err)

	assert.Equal(t, "package a", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), handle.reads.Load())

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, 50.0, stats.HitRate)

	cached, ok := cache.Peek("a.go")
	require.True(t, ok)
	assert.Equal(t, xxh3.HashString("package a"), cached.Digest)
}

func TestContentCache_FIFOEvictsOldestInserted(t *testing.T) {
	cache := New(Options{Capacity: 50})
	entries := make([]*models.FileEntry, 51)
	for i := range entries {
		entries[i], _ = newEntry(fmt.Sprintf("f%02d.txt", i), "x")
		_, err := cache.Get(entries[i])
		require.NoError(t, err)
	}

	assert.Equal(t, 50, cache.Len())
	_, ok := cache.Peek("f00.txt")
	assert.False(t, ok)
	_, ok = cache.Peek("f50.txt")
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestContentCache_FIFOHitDoesNotPromote(t *testing.T) {
	cache := New(Options{Capacity: 2, Policy: PolicyFIFO})
	a, _ := newEntry("a", "1")
	b, _ := newEntry("b", "2")
	c, _ := newEntry("c", "3")

	for _, e := range []*models.FileEntry{a, b, a, c} {
		_, err := cache.Get(e)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"b", "c"}, cache.Keys())
}

func TestContentCache_LRUHitPromotes(t *testing.T) {
	cache := New(Options{Capacity: 2, Policy: PolicyLRU})
	a, _ := newEntry("a", "1")
	b, _ := newEntry("b", "2")
	c, _ := newEntry("c", "3")

	for _, e := range []*models.FileEntry{a, b, a, c} {
		_, err := cache.Get(e)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "c"}, cache.Keys())
}

func TestContentCache_TooLargeIsNeverCached(t *testing.T) {
	cache := New(Options{MaxSize: 10})
	entry, handle := newEntry("big.js", strings.Repeat("a", 11))

	_, err := cache.Get(entry)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrFileTooLarge))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, int32(0), handle.reads.Load())
}

func TestContentCache_LargeFileWarns(t *testing.T) {
	var warnings []models.Warning
	cache := New(Options{MaxSize: 100, WarnSize: 10, OnWarning: func(w models.Warning) {
		warnings = append(warnings, w)
	}})
	entry, _ := newEntry("medium.js", strings.Repeat("a", 20))

	content, err := cache.Get(entry)

	require.NoError(t, err)
	assert.Len(t, content, 20)
	require.Len(t, warnings, 1)
	assert.Equal(t, models.WarnLargeFile, warnings[0].Kind)
	assert.Equal(t, "medium.js", warnings[0].Path)
}

func TestContentCache_ReadErrorIsNotCached(t *testing.T) {
	cache := New(Options{})
	entry, handle := newEntry("gone.go", "x")
	handle.readErr = fmt.Errorf("read gone.go: %w", apperr.ErrIO)

	_, err := cache.Get(entry)
	require.Error(t, err)
	assert.Equal(t, apperr.KindIO, apperr.Classify(err))
	assert.Equal(t, 0, cache.Len())

	handle.readErr = nil
	content, err := cache.Get(entry)
	require.NoError(t, err)
	assert.Equal(t, "x", content)
}

func TestContentCache_InvalidateAndClear(t *testing.T) {
	cache := New(Options{})
	a, handle := newEntry("a", "1")
	b, _ := newEntry("b", "2")
	_, _ = cache.Get(a)
	_, _ = cache.Get(b)

	assert.True(t, cache.Invalidate("a"))
	assert.False(t, cache.Invalidate("a"))
	_, _ = cache.Get(a)
	assert.Equal(t, int32(2), handle.reads.Load())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.Keys())
}

func TestContentCache_ConcurrentReaders(t *testing.T) {
	cache := New(Options{Capacity: 8})
	entries := make([]*models.FileEntry, 16)
	for i := range entries {
		entries[i], _ = newEntry(fmt.Sprintf("f%d", i), fmt.Sprintf("content %d", i))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := range entries {
				e := entries[(i+offset)%len(entries)]
				content, err := cache.Get(e)
				assert.NoError(t, err)
				assert.Equal(t, "content "+strings.TrimPrefix(e.Path, "f"), content)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 8)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("LRU")
	require.NoError(t, err)
	assert.Equal(t, PolicyLRU, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFIFO, p)

	_, err = ParsePolicy("random")
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestContentCache_RevalidateDropsChangedContent(t *testing.T) {
	cache := New(Options{})
	entry, handle := newEntry("a.go", "package a")
	_, err := cache.Get(entry)
	require.NoError(t, err)

	assert.False(t, cache.Revalidate(entry))
	_, ok := cache.Peek("a.go")
	assert.True(t, ok)

	handle.content = "package b"
	assert.True(t, cache.Revalidate(entry))
	_, ok = cache.Peek("a.go")
	assert.False(t, ok)

	other, _ := newEntry("b.go", "package b")
	assert.False(t, cache.Revalidate(other))
}
