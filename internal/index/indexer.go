package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/parser"
	"github.com/abramin/strata/internal/store"
)

// FileCache stores parsed file facts keyed by path and content hash.
type FileCache interface {
	Load(ctx context.Context)
	Get(path, hash string) (*ast.FileReference, bool)
	Put(path, hash string, ref *ast.FileReference)
	// Prune drops entries for paths not looked up or stored since the last
	// Write.
	Prune()
	Write(ctx context.Context) error
}

// NopCache is a FileCache that never hits.
type NopCache struct{}

func (NopCache) Load(context.Context)                          {}
func (NopCache) Get(string, string) (*ast.FileReference, bool) { return nil, false }
func (NopCache) Put(string, string, *ast.FileReference)        {}
func (NopCache) Prune()                                        {}
func (NopCache) Write(context.Context) error                   { return nil }

var _ FileCache = (*store.FactCache)(nil)

// FileError records a file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("the file %q could not be parsed: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Indexer builds the AST map of a set of files.
type Indexer struct {
	parser  parser.Parser
	cache   FileCache
	logger  *slog.Logger
	workers int
}

// NewIndexer creates an indexer. A nil cache disables caching.
func NewIndexer(p parser.Parser, cache FileCache, logger *slog.Logger) *Indexer {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		parser:  p,
		cache:   cache,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// Result holds the outcome of an indexing run.
type Result struct {
	Map       *ast.Map
	Files     int
	CacheHits int
	Failures  []*FileError
	Duration  time.Duration
}

type fileResult struct {
	ref *ast.FileReference
	hit bool
	err error
}

// Run parses every file, consulting the cache first, and assembles the
// map. Files that fail to parse are reported in Result.Failures and left
// out of the map. Run fails only when ctx is cancelled.
func (idx *Indexer) Run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	idx.logger.Debug("index.start", "files", len(files))
	idx.beginRun(ctx)

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = idx.indexFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing files: %w", err)
	}

	res := &Result{Files: len(files)}
	refs := make([]*ast.FileReference, 0, len(files))
	for i, r := range results {
		if r.err != nil {
			res.Failures = append(res.Failures, &FileError{Path: files[i], Err: r.err})
			idx.logger.Warn("index.file.failed", "path", files[i], "error", r.err)
			continue
		}
		if r.hit {
			res.CacheHits++
		}
		refs = append(refs, r.ref)
	}

	idx.endRun(ctx)

	res.Map = ast.NewMap(refs)
	res.Duration = time.Since(start)
	idx.logger.Debug("index.done",
		"files", res.Files,
		"cache_hits", res.CacheHits,
		"failures", len(res.Failures),
		"duration", res.Duration)
	return res, nil
}

// beginRun loads the cache before any file is looked up.
func (idx *Indexer) beginRun(ctx context.Context) { idx.cache.Load(ctx) }

// endRun persists the cache once every file has been processed, keeping
// only the files of this run. A failed write only costs the next run its
// cache hits.
func (idx *Indexer) endRun(ctx context.Context) {
	idx.cache.Prune()
	if err := idx.cache.Write(ctx); err != nil {
		idx.logger.Warn("cache.write.failed", "error", err)
	}
}

func (idx *Indexer) indexFile(path string) fileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: err}
	}
	hash := store.HashContent(content)
	if ref, ok := idx.cache.Get(path, hash); ok {
		return fileResult{ref: ref, hit: true}
	}
	ref, err := idx.parser.ParseFile(path, content)
	if err != nil {
		return fileResult{err: err}
	}
	idx.cache.Put(path, hash, ref)
	return fileResult{ref: ref}
}
