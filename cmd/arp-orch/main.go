package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
)

// app holds the process streams and environment the commands run against
type app struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	home    string
	workdir string
	now     func() time.Time
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arp-orch",
		Short: "App Reporting Pack pipeline orchestrator",
		Long: `arp-orch runs the App Reporting Pack pipeline: it fetches Google Ads reports,
stages them in BigQuery, derives snapshots and produces the reporting views.

Without a configuration file an interactive setup asks for the run parameters.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := mode.Register(rootCmd.Flags(), a.home)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.InvalidArgument(err)
	})
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runPipeline(cmd.Context(), flags.Descriptor())
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newSettingsCmd(a))
	return rootCmd
}

// execute runs the command line and returns the process exit status
func (a *app) execute(ctx context.Context, args []string) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInteractiveAbort):
		fmt.Fprintln(a.stderr, "Aborted.")
	default:
		fmt.Fprintf(a.stderr, "arp-orch: %v\n", err)
		if errors.Is(err, domain.ErrInvalidArgument) {
			fmt.Fprintln(a.stderr, "Run 'arp-orch --help' for usage.")
		}
	}
	return domain.ExitCode(err)
}

func main() {
	home, _ := os.UserHomeDir()
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		home:    home,
		workdir: wd,
		now:     time.Now,
	}
	code := a.execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
