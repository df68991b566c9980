package store

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/abramin/strata/internal/ast"
)

// HashContent returns the content hash used to key cache entries.
func HashContent(content []byte) string {
	h := xxh3.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// FactCache is a deferred, content-hash keyed cache of extracted file
// facts. Load reads the persisted state once; Write persists it once. Get
// and Put are safe for concurrent use in between. Prune before Write drops
// the entries of files the run never asked about.
type FactCache struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	// entries holds everything read by Load; staged holds what Put added
	// since. Write persists both, staged entries winning.
	entries map[string]Entry
	staged  map[string]Entry
	// touched records the paths hit by Get or stored by Put since the
	// last Write.
	touched map[string]bool
}

// NewFactCache creates a cache backed by the SQLite file at path.
func NewFactCache(path string, logger *slog.Logger) *FactCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactCache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
		staged:  make(map[string]Entry),
		touched: make(map[string]bool),
	}
}

// Path returns the location of the cache database.
func (c *FactCache) Path() string { return c.path }

// Load populates the in-memory index from disk. It is a no-op after the
// first call. A missing or unreadable cache leaves the index empty.
func (c *FactCache) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	if _, err := os.Stat(c.path); err != nil {
		c.logger.Debug("cache.load.missing", "path", c.path)
		return
	}

	st, err := Open(c.path)
	if err != nil {
		c.logger.Warn("cache.load.corrupt", "path", c.path, "error", err)
		return
	}
	defer st.Close()

	entries, err := st.LoadEntries(ctx)
	if err != nil {
		c.logger.Warn("cache.load.corrupt", "path", c.path, "error", err)
		return
	}

	var discarded int
	for _, e := range entries {
		if e.SchemaVersion != ast.CodecVersion {
			discarded++
			continue
		}
		c.entries[e.Filepath] = e
	}
	c.logger.Debug("cache.load", "path", c.path, "entries", len(c.entries), "discarded", discarded)
}

// Get returns the cached facts for path when the stored hash equals hash.
// Entries that fail to decode count as misses and are kept until the next
// Put for the same path replaces them.
func (c *FactCache) Get(path, hash string) (*ast.FileReference, bool) {
	c.mu.Lock()
	e, ok := c.staged[path]
	if !ok {
		e, ok = c.entries[path]
	}
	c.mu.Unlock()

	if !ok || e.ContentHash != hash {
		return nil, false
	}
	ref, err := ast.DecodeFileReference(e.Facts)
	if err != nil {
		c.logger.Debug("cache.get.undecodable", "path", path, "error", err)
		return nil, false
	}
	c.mu.Lock()
	c.touched[path] = true
	c.mu.Unlock()
	return ref, true
}

// Put stages the facts for path to be persisted by Write.
func (c *FactCache) Put(path, hash string, ref *ast.FileReference) {
	facts, err := ast.EncodeFileReference(ref)
	if err != nil {
		c.logger.Warn("cache.put.encode", "path", path, "error", err)
		return
	}
	c.mu.Lock()
	c.staged[path] = Entry{Filepath: path, ContentHash: hash, SchemaVersion: ast.CodecVersion, Facts: facts}
	c.touched[path] = true
	c.mu.Unlock()
}

// Prune forgets every loaded or staged entry whose path was neither hit by
// Get nor stored by Put since the last Write.
func (c *FactCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped int
	for k := range c.entries {
		if !c.touched[k] {
			delete(c.entries, k)
			dropped++
		}
	}
	for k := range c.staged {
		if !c.touched[k] {
			delete(c.staged, k)
		}
	}
	if dropped > 0 {
		c.logger.Debug("cache.prune", "path", c.path, "dropped", dropped)
	}
}

// Write replaces the persisted cache with the loaded entries merged with
// the staged ones. A cache file that cannot be opened is removed and
// recreated.
func (c *FactCache) Write(ctx context.Context) error {
	c.mu.Lock()
	merged := make(map[string]Entry, len(c.entries)+len(c.staged))
	for k, e := range c.entries {
		merged[k] = e
	}
	for k, e := range c.staged {
		merged[k] = e
	}
	c.entries = merged
	c.staged = make(map[string]Entry)
	c.touched = make(map[string]bool)
	c.mu.Unlock()

	entries := make([]Entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}

	st, err := Open(c.path)
	if err != nil {
		c.logger.Warn("cache.write.recreate", "path", c.path, "error", err)
		if rmErr := removeDatabase(c.path); rmErr != nil {
			return rmErr
		}
		if st, err = Open(c.path); err != nil {
			return err
		}
	}
	defer st.Close()

	if err := st.ReplaceEntries(ctx, entries); err != nil {
		return err
	}
	c.logger.Debug("cache.write", "path", c.path, "entries", len(entries))
	return nil
}

// Len returns the number of entries currently known to the cache.
func (c *FactCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	for k := range c.staged {
		if _, ok := c.entries[k]; !ok {
			n++
		}
	}
	return n
}

func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
