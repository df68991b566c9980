// Package pipeline wires discovery, indexing, dependency resolution and
// analysis into one run over a source tree.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/abramin/strata/internal/analyser"
	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/config"
	"github.com/abramin/strata/internal/dependency"
	"github.com/abramin/strata/internal/index"
	"github.com/abramin/strata/internal/layer"
	"github.com/abramin/strata/internal/parser"
	"github.com/abramin/strata/internal/result"
	"github.com/abramin/strata/internal/store"
)

type Options struct {
	// BaseDir anchors relative paths of the configuration. Defaults to the
	// working directory.
	BaseDir string
	// NoCache disables the file-fact cache regardless of configuration.
	NoCache bool
	Logger  *slog.Logger
}

// Runner holds the parts of a pipeline that survive between runs.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	discoverer *index.Discoverer
	indexer    *index.Indexer
	layers     *layer.CollectorResolver
	analyser   *analyser.Analyser
	deps       *dependency.Resolver
	setupErrs  []error
}

// New prepares a runner for cfg. Problems in the configuration that do not
// prevent a run are reported with every result instead of returned.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base dir: %w", err)
	}

	d, err := index.NewDiscoverer(cfg, baseDir)
	if err != nil {
		return nil, fmt.Errorf("configuring discovery: %w", err)
	}

	var cache index.FileCache
	if cfg.CacheEnabled() && !opts.NoCache {
		cache = store.NewFactCache(cfg.CachePath(baseDir), logger)
	}

	layers, layerErrs := layer.NewCollectorResolver(cfg.Layers, baseDir)
	a := analyser.New(cfg, layers, logger)
	setupErrs := cfg.Validate()
	setupErrs = append(setupErrs, layerErrs...)

	return &Runner{
		cfg:        cfg,
		logger:     logger,
		discoverer: d,
		indexer:    index.NewIndexer(parser.NewGoParser(namer(cfg, baseDir, logger)), cache, logger),
		layers:     layers,
		analyser:   a,
		deps:       dependency.NewResolver(a.EmitterTypes()),
		setupErrs:  setupErrs,
	}, nil
}

func namer(cfg *config.Config, baseDir string, logger *slog.Logger) parser.PackageNamer {
	if cfg.Go.LoadPackages {
		n, err := parser.LoadPackagesNamer(baseDir, logger)
		if err == nil {
			return n
		}
		logger.Warn("packages.load.failed", "error", err)
	}
	return parser.NewModuleNamer()
}

func (r *Runner) Config() *config.Config { return r.cfg }

func (r *Runner) Discoverer() *index.Discoverer { return r.discoverer }

// Analyser returns the analyser, whose handler chain may be customised
// before a run.
func (r *Runner) Analyser() *analyser.Analyser { return r.analyser }

// LayerNames returns the usable layers in declaration order.
func (r *Runner) LayerNames() []string { return r.layers.Names() }

// Stats describes one run.
type Stats struct {
	Files     int           `json:"files"`
	CacheHits int           `json:"cache_hits"`
	Failures  int           `json:"failures"`
	Edges     int           `json:"edges"`
	Duration  time.Duration `json:"duration_ns"`
}

// Run is the state of one pass over the source tree.
type Run struct {
	Map      *ast.Map
	Deps     *dependency.List
	Result   *result.Result
	Analyser *analyser.Analyser
	Stats    Stats

	started time.Time
}

// Index discovers and parses the source tree and resolves its dependency
// edges. The returned run's result already holds configuration problems
// and files that could not be parsed.
func (r *Runner) Index(ctx context.Context) (*Run, error) {
	start := time.Now()
	files, err := r.discoverer.Files()
	if err != nil {
		return nil, err
	}
	r.logger.Debug("discover.done", "files", len(files), "roots", len(r.discoverer.Roots()))

	idx, err := r.indexer.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	res := result.New()
	for _, err := range r.setupErrs {
		res.AddError(err.Error())
	}
	for _, f := range idx.Failures {
		res.AddError(f.Error())
	}

	deps := r.deps.Resolve(idx.Map)
	return &Run{
		Map:      idx.Map,
		Deps:     deps,
		Result:   res,
		Analyser: r.analyser,
		Stats: Stats{
			Files:     idx.Files,
			CacheHits: idx.CacheHits,
			Failures:  len(idx.Failures),
			Edges:     deps.Len(),
		},
		started: start,
	}, nil
}

// Analyse classifies the run's edges into its result.
func (run *Run) Analyse() error {
	if err := run.Analyser.Analyse(run.Map, run.Deps, run.Result); err != nil {
		return fmt.Errorf("analysing dependencies: %w", err)
	}
	run.Stats.Duration = time.Since(run.started)
	return nil
}

// Run indexes and analyses the source tree.
func (r *Runner) Run(ctx context.Context) (*Run, error) {
	run, err := r.Index(ctx)
	if err != nil {
		return nil, err
	}
	if err := run.Analyse(); err != nil {
		return nil, err
	}
	r.logger.Info("analyse.complete",
		"files", run.Stats.Files,
		"cache_hits", run.Stats.CacheHits,
		"violations", len(run.Result.Violations()),
		"duration", run.Stats.Duration.Round(time.Millisecond),
	)
	return run, nil
}

// Watch runs the pipeline once and again after every batch of source
// changes until ctx is cancelled. onRun receives each run or its error.
func (r *Runner) Watch(ctx context.Context, debounce time.Duration, onRun func(*Run, error)) error {
	w, err := index.NewWatcher(r.discoverer, debounce, r.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	onRun(r.Run(ctx))
	return w.Run(ctx, func(ctx context.Context, paths []string) {
		r.logger.Info("watch.change", "files", len(paths))
		onRun(r.Run(ctx))
	})
}
