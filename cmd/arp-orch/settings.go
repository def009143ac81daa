package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the orchestrator settings file",
	}

	var (
		path  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = settings.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return domain.InvalidArgument(fmt.Errorf("%s already exists (use --force to overwrite)", path))
			}
			if err := settings.Default().Save(path); err != nil {
				return fmt.Errorf("writing settings: %w", err)
			}
			fmt.Fprintf(a.stdout, "Wrote default settings to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "where to write the settings (default ~/.config/arp-orchestrator/config.toml)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
