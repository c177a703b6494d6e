package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command
func NewVersionCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "pagecraft version %s\n", env.Version)

			info, err := env.Client.Health(cmd.Context())
			if err != nil {
				env.Logger.Debug().Err(err).Msg("Server version unavailable")
				return
			}
			fmt.Fprintf(env.Out, "server version %s (%s)\n", info.Version, env.APIURL)
			if info.Version != env.Version {
				fmt.Fprintln(env.ErrOut, "Note: CLI and server versions differ")
			}
		},
	}
}
