package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loader produces a table for a stable identity key.
type Loader interface {
	Key() string
	Load(ctx context.Context) (*Table, error)
}

// FileSource loads a CSV file or directory of CSV files.
type FileSource struct {
	path string
	key  string
}

// NewFileSource resolves path so that equivalent spellings share a cache entry.
func NewFileSource(path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return &FileSource{path: path, key: "file:" + abs}, nil
}

// Key returns the cache identity of the source
func (s *FileSource) Key() string { return s.key }

// Path returns the path as configured
func (s *FileSource) Path() string { return s.path }

// Load reads the source from disk
func (s *FileSource) Load(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadPath(s.path)
}

// Cache memoizes one table per loader key for the life of the process.
// Each key is populated at most once; concurrent callers wait for the
// single in-flight load and never observe a partial table. Failed loads
// are forgotten so that a later call retries.
type Cache struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	ready    chan struct{}
	table    *Table
	err      error
	loadedAt time.Time
}

// EntryInfo describes a populated cache entry
type EntryInfo struct {
	Key      string    `json:"key"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewCache creates an empty cache. A nil clock uses real time.
func NewCache(clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		clock:   clock,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the table for loader, loading it on first use. hit reports
// whether the table was already loaded (or being loaded) by another call.
func (c *Cache) Get(ctx context.Context, loader Loader) (table *Table, hit bool, err error) {
	key := loader.Key()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{ready: make(chan struct{})}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
		if e.err != nil {
			return nil, false, e.err
		}
		return e.table, true, nil
	}

	c.load(ctx, key, e, loader)
	return e.table, false, e.err
}

// load populates e and releases its waiters. A failed or panicking load is
// forgotten so the next Get retries it.
func (c *Cache) load(ctx context.Context, key string, e *cacheEntry, loader Loader) {
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("load %s: panic: %v", key, r)
		}
		if e.err != nil {
			e.table = nil
			c.mu.Lock()
			if c.entries[key] == e {
				delete(c.entries, key)
			}
			c.mu.Unlock()
		}
		close(e.ready)
	}()

	e.table, e.err = loader.Load(ctx)
	e.loadedAt = c.clock.Now()
}

// Entries lists the populated entries.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EntryInfo, 0, len(c.entries))
	for key, e := range c.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.err != nil {
			continue
		}
		out = append(out, EntryInfo{Key: key, Rows: e.table.Len(), LoadedAt: e.loadedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
