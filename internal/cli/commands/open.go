package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagecraft-dev/pagecraft/internal/guard"
)

// NewOpenCmd creates the open command, which prints the page URL the site
// would actually show for a path given the current sign-in state
func NewOpenCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Print the URL of a site page, following sign-in redirects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			decision := guard.DefaultRules().Evaluate(path, env.Jar.HasCredentials())
			target := path
			if decision.Action == guard.Redirect {
				target = decision.Location
				fmt.Fprintf(env.ErrOut, "%s redirects to %s\n", path, target)
			}

			fmt.Fprintln(env.Out, env.Client.SiteURL()+target)
			return nil
		},
	}
}
