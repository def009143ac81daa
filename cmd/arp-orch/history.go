package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/history"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
	"github.com/hochfrequenz/arp-orchestrator/tui"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit        int
		interactive  bool
		settingsPath string
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded pipeline runs",
		Long: `Show the runs recorded in the run-history database. With a run id the
stage results of that run are listed instead.

History is only recorded when [history] enabled = true in the settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.LoadWithLocalFallback(settingsPath)
			if err != nil {
				return domain.ConfigInvalid(err)
			}
			if _, err := os.Stat(s.History.DatabasePath); err != nil {
				fmt.Fprintf(a.stdout, "No run history at %s\n", s.History.DatabasePath)
				return nil
			}

			store, err := history.New(s.History.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return a.printStages(store, args[0])
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if interactive {
				if !isTerminal(a.stdout) {
					return domain.InvalidArgument(fmt.Errorf("--tui needs a terminal"))
				}
				model := tui.NewModel(tui.ModelConfig{
					Runs:   runs,
					Loader: store.StageResults,
					Now:    a.now,
				})
				_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
				return err
			}
			a.printRuns(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&interactive, "tui", false, "browse runs interactively")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "orchestrator settings file (TOML)")
	return cmd
}

func (a *app) printRuns(runs []*domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs recorded")
		return
	}
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tEXIT\tSTARTED\tFLAGS")
	for _, r := range runs {
		flags := r.Flags
		if flags == "" {
			flags = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Status, r.ExitCode, humanize.RelTime(r.StartedAt, a.now(), "ago", "from now"), flags)
	}
	w.Flush()
}

func (a *app) printStages(store *history.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	results, err := store.StageResults(run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Run %s (%s, exit %d)\n", run.ID, run.Status, run.ExitCode)
	if run.ConfigPath != "" {
		fmt.Fprintf(a.stdout, "Configuration: %s (%s)\n", run.ConfigPath, run.ConfigSource)
	}
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTAGE\tSTATUS\tEXIT\tDURATION")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", r.Ordinal, r.Stage, r.Status, r.ExitCode, r.Duration().Round(time.Millisecond))
	}
	w.Flush()
	return nil
}
