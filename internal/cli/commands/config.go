package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/userconfig"
)

// NewConfigCmd creates the config command group
func NewConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change local settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-url <api-url>",
		Short: "Set the API base URL, e.g. https://pagecraft.example.com/api",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.New(args[0]); err != nil {
				return err
			}
			if err := userconfig.SetAPIURL(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ API URL set to %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the settings in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userconfig.GetConfigPath()
			if err != nil {
				return err
			}
			cfg, err := userconfig.Load()
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "Config file:        %s\n", path)
			fmt.Fprintf(env.Out, "API URL:            %s\n", env.APIURL)
			fmt.Fprintf(env.Out, "Selected portfolio: %s\n", cfg.SelectedPortfolio)
			return nil
		},
	})

	return cmd
}
