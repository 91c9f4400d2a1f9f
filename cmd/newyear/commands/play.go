package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/newyear/internal/session"
	"github.com/livetemplate/newyear/internal/steps"
	"github.com/livetemplate/newyear/internal/tui"
	"github.com/livetemplate/newyear/internal/wheel"
	"github.com/livetemplate/newyear/internal/wishclient"
)

type playOptions struct {
	name    string
	url     string
	offline bool
	theme   string
}

func newPlayCommand(flags *globalFlags) *cobra.Command {
	opts := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the game in the terminal",
		Long: `Play the five steps in the terminal. Wishes are loaded from and saved to the
wish API of a running "newyear serve" unless --offline is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(flags, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "log in with this name")
	cmd.Flags().StringVar(&opts.url, "url", "", "wish API base URL (default: from config)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "play without loading or saving wishes")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "color theme: dark or light")
	return cmd
}

// newPlaySession builds a terminal session. remote may be nil.
func newPlaySession(flags *globalFlags, opts *playOptions) (*session.Session, error) {
	cfg, _, err := flags.load()
	if err != nil {
		return nil, err
	}
	catalog, err := wheel.CatalogFromConfig(cfg.Wheel)
	if err != nil {
		return nil, fmt.Errorf("failed to build prize catalog: %w", err)
	}

	sopts := session.Options{
		Gate:         steps.OptionsFromConfig(cfg),
		SpinDuration: cfg.Wheel.GetSpinDuration(),
		Timeout:      cfg.Client.GetTimeout(),
	}
	if !opts.offline {
		baseURL := opts.url
		if baseURL == "" {
			baseURL = cfg.BaseURL()
		}
		sopts.Remote = wishclient.NewWithConfig(baseURL, cfg.Client)
	}

	sess := session.New("terminal", func() *wheel.Catalog { return catalog }, sopts)
	if opts.name != "" {
		if _, err := sess.Login(opts.name); err != nil {
			sess.Close()
			return nil, err
		}
	}
	return sess, nil
}

func runPlay(flags *globalFlags, opts *playOptions) error {
	sess, err := newPlaySession(flags, opts)
	if err != nil {
		return err
	}
	defer func() {
		sess.Close()
		sess.Wait()
	}()

	return tui.Run(sess, tui.DetectTheme(opts.theme))
}
