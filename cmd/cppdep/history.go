package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cppdep/internal/config"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/history"
	"cppdep/internal/paths"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		cfg    string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List recorded analysis runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(a, cfg, args)
			if err != nil {
				return err
			}
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			case "text":
				return writeRuns(a.stdout, runs)
			default:
				return cerrors.Newf(cerrors.ConfigInvalid, "unsupported format: %s", format)
			}
		},
	}
	cmd.Flags().StringVarP(&cfg, "config", "c", "", "Project description file")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")

	var keep int
	prune := &cobra.Command{
		Use:   "prune [dir]",
		Short: "Delete all but the newest runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(a, cfg, args)
			if err != nil {
				return err
			}
			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "deleted %d runs\n", n)
			return err
		},
	}
	prune.Flags().IntVar(&keep, "keep", 20, "Runs to keep")
	cmd.AddCommand(prune)
	return cmd
}

func openHistory(a *app, cfg string, args []string) (*history.Store, error) {
	projFile, err := projectPath(cfg, args)
	if err != nil {
		return nil, err
	}
	proj, err := config.LoadProject(projFile)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(proj.Dir)
	if err != nil {
		return nil, err
	}
	if err := a.setupLogger(settings, proj.Dir); err != nil {
		return nil, err
	}
	store, err := history.OpenStore(paths.Resolve(proj.Dir, settings.History.Path), a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func writeRuns(w io.Writer, runs []*history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDATE\tVERSION\tFINDINGS\tERRORS\tWAIVED\tCCD\tNCCD\tCYCLES")
	for _, r := range runs {
		ccd, nccd, cycles := "-", "-", 0
		for _, m := range r.Levels {
			cycles += m.Cycles
			if m.Level == "component" {
				ccd = fmt.Sprint(m.CCD)
				if m.NCCD != nil {
					nccd = fmt.Sprintf("%.3f", *m.NCCD)
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%d\n",
			r.ID[:8], r.CreatedAt.Format("2006-01-02 15:04:05"), r.Version,
			r.Findings, r.Errors, r.Waived, ccd, nccd, cycles)
	}
	return tw.Flush()
}
