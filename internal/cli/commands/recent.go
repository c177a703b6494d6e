package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRecentCmd creates the recent command group
func NewRecentCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Recently used items such as skills and tags",
	}
	cmd.AddCommand(newRecentListCmd(env), newRecentAddCmd(env))
	return cmd
}

func newRecentListCmd(env *Env) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List recently used items, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := env.recent().List(cmd.Context(), kind, limit)
			if !res.Success {
				return failure(res.Message)
			}

			if len(res.Data) == 0 {
				fmt.Fprintln(env.Out, "Nothing used recently.")
				return nil
			}

			w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tCONTENT\tUSED AT")
			for _, item := range res.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.Type, item.Content, item.UsedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Only list items of this type")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items (server default if 0)")

	return cmd
}

func newRecentAddCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <type> <content>",
		Short: "Mark an item as just used",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := env.recent().Record(cmd.Context(), args[0], args[1])
			if !res.Success {
				return failure(res.Message)
			}
			fmt.Fprintf(env.Out, "✓ Recorded %s %q\n", res.Data.Type, res.Data.Content)
			return nil
		},
	}
}
