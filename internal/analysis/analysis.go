// Package analysis wires discovery, include extraction, resolution, graph
// analysis and flaw reporting into one run.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"cppdep/internal/catalog"
	"cppdep/internal/config"
	"cppdep/internal/depgraph"
	"cppdep/internal/flaws"
	"cppdep/internal/includes"
	"cppdep/internal/resolver"
)

// Result is everything one run derives.
type Result struct {
	Resolution *resolver.Result
	Hierarchy  *depgraph.Hierarchy

	// Graphs are indexed by depgraph.Level
	Graphs [3]*depgraph.Analyzed

	// Cycles of all levels, finest level first
	Cycles []depgraph.Cycle

	Findings []flaws.Finding
}

// Graph returns the analyzed graph of one level.
func (r *Result) Graph(l depgraph.Level) *depgraph.Analyzed {
	return r.Graphs[l]
}

// Analyze is the pure core: it never touches the filesystem.
func Analyze(ctx context.Context, cat *catalog.Catalog, table includes.Table, sp resolver.SearchPaths, opts resolver.Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	res, err := resolver.Resolve(cat, table, sp, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := depgraph.FromResolution(res)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graphs, err := depgraph.AnalyzeAll(ctx, h)
	if err != nil {
		return nil, err
	}

	findings, err := flaws.Report(res, graphs)
	if err != nil {
		return nil, err
	}

	out := &Result{Resolution: res, Hierarchy: h, Graphs: graphs, Findings: findings}
	for _, a := range graphs {
		out.Cycles = append(out.Cycles, a.Cycles...)
	}
	for _, a := range graphs {
		logger.Debug("level analyzed",
			"level", a.Graph.Level.String(),
			"nodes", a.Summary.Nodes,
			"edges", a.Summary.Edges,
			"cycles", a.Summary.Cycles,
			"levels", a.Summary.Levels)
	}
	logger.Debug("analysis complete", "findings", len(findings), "duration", time.Since(start))
	return out, nil
}

// Options configures Run.
type Options struct {
	Resolver resolver.Options

	// Workers bounds file reads and hashing (default: GOMAXPROCS)
	Workers int

	// Extractor defaults to the lexical scanner
	Extractor includes.Extractor

	// Digests fills file digests during discovery
	Digests bool

	Logger *slog.Logger
}

// Run discovers the files of a project layout, extracts their includes and
// analyzes them.
func Run(ctx context.Context, layout *config.Layout, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	cat, err := catalog.Discover(ctx, layout.Sources, catalog.DiscoverOptions{
		Workers:     opts.Workers,
		SkipDigests: !opts.Digests,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("files cataloged", "files", cat.Len(), "duration", time.Since(start))

	start = time.Now()
	table, err := includes.ExtractAll(ctx, cat.InternalFiles(), includes.Options{
		Workers:   opts.Workers,
		Extractor: opts.Extractor,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("includes extracted", "files", len(table), "duration", time.Since(start))

	ropts := opts.Resolver
	if ropts.Logger == nil {
		ropts.Logger = logger
	}
	return Analyze(ctx, cat, table, layout.Search, ropts)
}
