package content_cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

type Policy string

const (
	// PolicyFIFO evicts the oldest inserted entry; hits do not reorder.
	PolicyFIFO Policy = "fifo"
	// PolicyLRU evicts the least recently read entry.
	PolicyLRU Policy = "lru"
)

const (
	DefaultCapacity = 50
	DefaultMaxSize  = 5 * 1024 * 1024
	DefaultWarnSize = 1024 * 1024
)

type Options struct {
	Capacity  int
	Policy    Policy
	MaxSize   int64
	WarnSize  int64
	OnWarning func(models.Warning)
	Logger    *zap.Logger
}

// ParsePolicy accepts "fifo" or "lru" in any case; empty means FIFO.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(PolicyFIFO):
		return PolicyFIFO, nil
	case string(PolicyLRU):
		return PolicyLRU, nil
	}
	return "", fmt.Errorf("unknown cache policy %q: %w", value, apperr.ErrInvalidArgument)
}

// Entry describes one cached file without its content.
type Entry struct {
	Path   string
	Size   int64
	Digest uint64
}

type cacheItem struct {
	path    string
	content string
	size    int64
	digest  uint64
}

// ContentCache keeps the decoded text of recently read files, bounded by
// entry count.
type ContentCache struct {
	mu        sync.Mutex
	capacity  int
	policy    Policy
	maxSize   int64
	warnSize  int64
	onWarning func(models.Warning)
	logger    *zap.Logger
	order     *list.List
	items     map[string]*list.Element
	stats     *cacheStats
}

func New(opts Options) *ContentCache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Policy == "" {
		opts.Policy = PolicyFIFO
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.WarnSize <= 0 {
		opts.WarnSize = DefaultWarnSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ContentCache{
		capacity:  opts.Capacity,
		policy:    opts.Policy,
		maxSize:   opts.MaxSize,
		warnSize:  opts.WarnSize,
		onWarning: opts.OnWarning,
		logger:    opts.Logger,
		order:     list.New(),
		items:     make(map[string]*list.Element),
		stats:     &cacheStats{LastResetTime: time.Now()},
	}
}

// Get returns the file's text, reading it through its handle on a miss.
// Oversized files and failed reads are never cached.
func (c *ContentCache) Get(entry *models.FileEntry) (string, error) {
	if entry == nil || entry.Handle == nil {
		return "", fmt.Errorf("no file handle: %w", apperr.ErrInvalidArgument)
	}

	c.mu.Lock()
	if elem, ok := c.items[entry.Path]; ok {
		if c.policy == PolicyLRU {
			c.order.MoveToBack(elem)
		}
		content := elem.Value.(*cacheItem).content
		c.mu.Unlock()
		c.recordCacheHit()
		return content, nil
	}
	c.mu.Unlock()
	c.recordCacheMiss()

	size, err := entry.Handle.Size()
	if err != nil {
		return "", fmt.Errorf("%s: %w", entry.Path, err)
	}
	if size > c.maxSize {
		return "", fmt.Errorf("%s is %s, the limit is %s: %w",
			entry.Path, utils.FormatFileSize(size), utils.FormatFileSize(c.maxSize), apperr.ErrFileTooLarge)
	}
	if size > c.warnSize {
		c.warn(models.Warning{
			Kind:    models.WarnLargeFile,
			Path:    entry.Path,
			Size:    size,
			Message: fmt.Sprintf("large file (%s) may be slow to read", utils.FormatFileSize(size)),
		})
	}

	data, err := entry.Handle.Read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", entry.Path, err)
	}
	content := string(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[entry.Path]; ok {
		// a concurrent reader inserted it first
		return elem.Value.(*cacheItem).content, nil
	}
	c.items[entry.Path] = c.order.PushBack(&cacheItem{
		path:    entry.Path,
		content: content,
		size:    int64(len(data)),
		digest:  xxh3.Hash(data),
	})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem).path)
		c.recordEviction()
	}
	return content, nil
}

func (c *ContentCache) warn(w models.Warning) {
	c.logger.Warn("large file read", zap.String("path", w.Path), zap.Int64("size", w.Size))
	if c.onWarning != nil {
		c.onWarning(w)
	}
}

// Peek reports whether a path is cached, without counting as a read.
func (c *ContentCache) Peek(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[path]
	if !ok {
		return Entry{}, false
	}
	item := elem.Value.(*cacheItem)
	return Entry{Path: item.path, Size: item.size, Digest: item.digest}, true
}

// Revalidate re-reads a cached file and drops it when its content digest
// changed or it can no longer be read. Uncached paths are left alone. It
// reports whether the entry was dropped.
func (c *ContentCache) Revalidate(entry *models.FileEntry) bool {
	c.mu.Lock()
	elem, ok := c.items[entry.Path]
	var digest uint64
	if ok {
		digest = elem.Value.(*cacheItem).digest
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	if entry.Handle != nil {
		if data, err := entry.Handle.Read(); err == nil && xxh3.Hash(data) == digest {
			return false
		}
	}
	return c.Invalidate(entry.Path)
}

// Invalidate drops one path and reports whether it was cached.
func (c *ContentCache) Invalidate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[path]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, path)
	return true
}

func (c *ContentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys lists cached paths in eviction order, next victim first.
func (c *ContentCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*cacheItem).path)
	}
	return keys
}
