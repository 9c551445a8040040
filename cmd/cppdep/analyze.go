package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cppdep/internal/analysis"
	"cppdep/internal/config"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/flaws"
	"cppdep/internal/history"
	"cppdep/internal/includes"
	"cppdep/internal/paths"
	"cppdep/internal/report"
	"cppdep/internal/resolver"
	"cppdep/internal/waivers"
)

type analyzeOptions struct {
	config    string
	format    string
	output    string
	compress  bool
	dotDir    string
	reduced   bool
	all       bool
	levels    []string
	record    bool
	waivers   string
	failOn    string
	extractor string
	workers   int
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze the physical dependencies of a project",
		Long: `Analyze reads the project description (.cppdep.yml, .cppdep.yaml or
.cppdep.toml) in dir, or the file given with --config, and reports
cycles, levels, metrics and design flaws at component, package and
group level.

Examples:
  cppdep analyze
  cppdep analyze -l ./src
  cppdep analyze --format json -o report.json
  cppdep analyze --format json --compress -o report.json.zst
  cppdep analyze --dot graphs --fail-on warning`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, &o, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.config, "config", "c", "", "Project description file")
	f.StringVar(&o.format, "format", "", "Output format (text, json)")
	f.StringVarP(&o.output, "output", "o", "", "Write the report to a file instead of stdout")
	f.BoolVar(&o.compress, "compress", false, "Compress JSON output with zstd")
	f.StringVar(&o.dotDir, "dot", "", "Write Graphviz files into this directory")
	f.BoolVarP(&o.reduced, "reduced", "l", false, "List dependencies without redundant edges")
	f.BoolVarP(&o.all, "all-deps", "L", false, "List all direct dependencies")
	f.StringSliceVar(&o.levels, "level", nil, "Restrict text output to levels (component, package, group)")
	f.BoolVar(&o.record, "record", false, "Record the run in the history database")
	f.StringVar(&o.waivers, "waivers", "", "Waiver file")
	f.StringVar(&o.failOn, "fail-on", "", "Exit with status 2 when findings at or above this severity remain (info, warning, error)")
	f.StringVar(&o.extractor, "extractor", "", "Include extractor (lexical, treesitter)")
	f.IntVar(&o.workers, "workers", 0, "Concurrent file reads (default: number of CPUs)")
	cmd.MarkFlagsMutuallyExclusive("reduced", "all-deps")
	return cmd
}

// applyFlags overlays explicitly set flags on the loaded settings.
func (o *analyzeOptions) applyFlags(cmd *cobra.Command, s *config.Settings) error {
	f := cmd.Flags()
	if f.Changed("format") {
		s.Report.Format = o.format
	}
	if f.Changed("waivers") {
		s.Report.Waivers = o.waivers
	}
	if f.Changed("fail-on") {
		s.Report.FailOn = o.failOn
	}
	if f.Changed("extractor") {
		s.Analysis.Extractor = o.extractor
	}
	if f.Changed("workers") {
		s.Analysis.Workers = o.workers
	}
	if f.Changed("reduced") {
		s.Report.Reduced = o.reduced
	}
	if o.record {
		s.History.Enabled = true
	}
	if err := s.Validate(); err != nil {
		return cerrors.New(cerrors.ConfigInvalid, "invalid option", err)
	}
	if o.compress && s.Report.Format != "json" {
		return cerrors.Newf(cerrors.ConfigInvalid, "--compress requires --format json")
	}
	for _, l := range o.levels {
		switch l {
		case "component", "package", "group":
		default:
			return cerrors.Newf(cerrors.ConfigInvalid, "unknown level %q", l)
		}
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, a *app, o *analyzeOptions, args []string) error {
	ctx := cmd.Context()
	start := a.now()

	projFile, err := projectPath(o.config, args)
	if err != nil {
		return err
	}
	proj, err := config.LoadProject(projFile)
	if err != nil {
		return err
	}
	settings, err := loadSettings(proj.Dir)
	if err != nil {
		return err
	}
	if err := o.applyFlags(cmd, settings); err != nil {
		return err
	}
	if err := a.setupLogger(settings, proj.Dir); err != nil {
		return err
	}
	logger := a.logger
	logger.Debug("project loaded", "file", projFile, "dir", proj.Dir)

	layout, err := proj.Layout()
	if err != nil {
		return err
	}
	extractor, err := includes.New(settings.Analysis.Extractor)
	if err != nil {
		return cerrors.New(cerrors.ConfigInvalid, "include extractor unavailable", err)
	}

	res, err := analysis.Run(ctx, layout, analysis.Options{
		Resolver: resolver.Options{
			HeaderOnly: settings.Analysis.HeaderOnly,
			SourceOnly: settings.Analysis.SourceOnly,
		},
		Workers:   settings.Analysis.Workers,
		Extractor: extractor,
		Digests:   settings.Analysis.Digests,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	findings := relativize(res.Findings, proj.Dir)
	ws, err := waivers.Load(paths.Resolve(proj.Dir, settings.Report.Waivers))
	if err != nil {
		return err
	}
	kept, waived := ws.Apply(findings, a.now())
	for _, w := range ws.Unused() {
		logger.Info("waiver matched nothing", "category", string(w.Category), "entity", w.Entity)
	}

	doc := report.Build(res, kept, waived)

	if settings.History.Enabled {
		store, err := history.OpenStore(paths.Resolve(proj.Dir, settings.History.Path), logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		run := history.FromDocument(doc, proj.Dir)
		if err := store.Record(ctx, run); err != nil {
			return err
		}
		doc.RunID = run.ID
	}

	if err := writeReport(a, o, settings, doc); err != nil {
		return err
	}

	if o.dotDir != "" {
		written, err := report.WriteDOT(o.dotDir, doc, !o.all)
		if err != nil {
			return err
		}
		logger.Info("DOT files written", "dir", o.dotDir, "files", len(written))
	}

	logger.Info("analysis finished",
		"findings", len(kept),
		"waived", waived,
		"duration", time.Since(start).Round(time.Millisecond))

	if settings.Report.FailOn != "" {
		sev, err := flaws.ParseSeverity(settings.Report.FailOn)
		if err != nil {
			return cerrors.New(cerrors.ConfigInvalid, "invalid --fail-on", err)
		}
		if over := flaws.AtLeast(kept, sev); len(over) > 0 {
			return &failError{count: len(over), severity: sev.String()}
		}
	}
	return nil
}

func writeReport(a *app, o *analyzeOptions, s *config.Settings, doc *report.Document) (err error) {
	var w io.Writer = a.stdout
	if o.output != "" {
		if err := os.MkdirAll(filepath.Dir(o.output), 0o755); err != nil {
			return cerrors.New(cerrors.IOFailure, "failed to create output directory", err)
		}
		var f io.WriteCloser
		f, err = a.create(o.output)
		if err != nil {
			return cerrors.New(cerrors.IOFailure, "failed to create "+o.output, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerrors.New(cerrors.IOFailure, "failed to close "+o.output, cerr)
			}
		}()
		w = f
	}

	switch {
	case s.Report.Format == "json" && o.compress:
		err = report.WriteCompressedJSON(w, doc)
	case s.Report.Format == "json":
		err = report.WriteJSON(w, doc)
	default:
		deps := report.DepsNone
		switch {
		case o.all:
			deps = report.DepsAll
		case s.Report.Reduced:
			deps = report.DepsReduced
		}
		err = report.WriteText(w, doc, report.TextOptions{Deps: deps, Levels: o.levels})
	}
	if err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to write report", err)
	}
	return nil
}

// relativize rewrites absolute file paths in findings relative to the
// project directory so reports and waivers are location independent.
func relativize(findings []flaws.Finding, root string) []flaws.Finding {
	out := make([]flaws.Finding, len(findings))
	for i, f := range findings {
		f.File = paths.Display(f.File, root)
		if len(f.Entities) > 0 {
			ents := make([]string, len(f.Entities))
			for j, e := range f.Entities {
				if strings.HasPrefix(e, "/") || filepath.IsAbs(e) {
					e = paths.Display(e, root)
				}
				ents[j] = e
			}
			f.Entities = ents
		}
		out[i] = f
	}
	return out
}
