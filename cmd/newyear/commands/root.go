// Package commands implements the newyear CLI commands.
package commands

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/livetemplate/newyear/internal/config"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	dir        string
}

// NewRootCommand builds the command tree.
func NewRootCommand(version, commit string) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "newyear",
		Short:         "newyear - a five-step New Year greeting game",
		Long:          "newyear serves the wish API and live game sessions, and plays the game in the terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("newyear %s (commit: %s)\n", version, commit))

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: newyear.yaml in --dir)")
	root.PersistentFlags().StringVarP(&flags.dir, "dir", "d", ".", "working directory for config and the sqlite database")

	root.AddCommand(newServeCommand(flags))
	root.AddCommand(newPlayCommand(flags))
	root.AddCommand(newWishesCommand(flags))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newyear version %s\n", version)
		},
	})
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute(version, commit string) {
	if err := NewRootCommand(version, commit).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load returns the configuration and the path it was (or would be) read from.
func (f *globalFlags) load() (*config.Config, string, error) {
	path := f.configPath
	if path == "" {
		path = config.FindInDir(f.dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
