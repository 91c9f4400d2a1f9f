package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/newyear/internal/wishclient"
)

type wishesOptions struct {
	url    string
	format string
}

func newWishesCommand(flags *globalFlags) *cobra.Command {
	opts := &wishesOptions{}
	cmd := &cobra.Command{
		Use:   "wishes",
		Short: "Read and add wishes through the wish API",
	}
	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "wish API base URL (default: from config)")

	list := &cobra.Command{
		Use:   "list <name>",
		Short: "List the wishes saved for a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(flags)
			if err != nil {
				return err
			}
			return wishesList(cmd, client, args[0], opts.format)
		},
	}
	list.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	add := &cobra.Command{
		Use:   "add <name> <wish>",
		Short: "Save a wish for a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(flags)
			if err != nil {
				return err
			}
			if err := client.Save(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("failed to save wish: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved wish for %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func (o *wishesOptions) client(flags *globalFlags) (*wishclient.Client, error) {
	cfg, _, err := flags.load()
	if err != nil {
		return nil, err
	}
	baseURL := o.url
	if baseURL == "" {
		baseURL = cfg.BaseURL()
	}
	return wishclient.NewWithConfig(baseURL, cfg.Client), nil
}

func wishesList(cmd *cobra.Command, client *wishclient.Client, name, format string) error {
	wishes, err := client.Fetch(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to fetch wishes: %w", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"name": name, "wishes": wishes})
	case "text":
		if len(wishes) == 0 {
			fmt.Fprintln(out, "No wishes found.")
			return nil
		}
		for i, w := range wishes {
			fmt.Fprintf(out, "%2d. %s\n", i+1, w)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
