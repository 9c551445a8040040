package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cppdep/internal/config"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/paths"
	"cppdep/internal/slogutil"
	"cppdep/internal/version"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose int
	quiet   bool

	logger  *slog.Logger
	closers []io.Closer
	now     func() time.Time
	create  func(name string) (io.WriteCloser, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		logger: slogutil.NewDiscardLogger(),
		now:    time.Now,
		create: func(name string) (io.WriteCloser, error) { return os.Create(name) },
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cppdep",
		Short: "cppdep - physical dependency analysis for C/C++",
		Long: `cppdep groups C/C++ files into components, packages and package
groups, builds their include dependency graphs and reports cycles,
levels, cumulative component dependency metrics and physical design
flaws.`,
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("cppdep version {{.Version}}\n")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Silence all logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newHistoryCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setupLogger builds the logger from settings and verbosity flags. Flags
// win over logging.level; a log file receives records alongside stderr.
func (a *app) setupLogger(s *config.Settings, root string) error {
	level := slogutil.LevelFromString(s.Logging.Level)
	if a.verbose > 0 || a.quiet {
		level = slogutil.LevelFromVerbosity(a.verbose, a.quiet)
	}

	var h slog.Handler
	if s.Logging.Format == "json" {
		h = slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: level})
	} else {
		h = slogutil.NewHandler(a.stderr, &slog.HandlerOptions{Level: level})
	}
	if s.Logging.File == "" {
		a.logger = slog.New(h)
		return nil
	}

	file := paths.Resolve(root, s.Logging.File)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to create log directory", err)
	}
	fl, f, err := slogutil.NewFileLogger(file, slogutil.LevelFromString(s.Logging.Level))
	if err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to open log file", err)
	}
	a.closers = append(a.closers, f)
	a.logger = slogutil.NewTeeLogger(h, fl.Handler())
	return nil
}

// loadSettings wraps settings errors in the error taxonomy.
func loadSettings(root string) (*config.Settings, error) {
	s, err := config.LoadSettings(root)
	if err != nil {
		return nil, cerrors.New(cerrors.ConfigInvalid, "invalid settings in "+filepath.Join(root, config.SettingsDir), err)
	}
	return s, nil
}

// projectPath locates the project description: the --config flag when
// set, otherwise the first description file in dir.
func projectPath(flag string, args []string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return config.FindProject(dir)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(a.stdout, version.Full()+"\n")
			return err
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write default settings to .cppdep/settings.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			file := filepath.Join(dir, config.SettingsDir, "settings.json")
			if _, err := os.Stat(file); err == nil && !force {
				return cerrors.Newf(cerrors.ConfigInvalid, "%s already exists (use --force to overwrite)", file)
			}
			if err := config.DefaultSettings().Save(dir); err != nil {
				return cerrors.New(cerrors.IOFailure, "failed to write settings", err)
			}
			_, err := io.WriteString(a.stdout, "wrote "+file+"\n")
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing settings")
	return cmd
}
