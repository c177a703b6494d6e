package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/portfolioselect"
	"github.com/pagecraft-dev/pagecraft/internal/cli/userconfig"
)

// NewPortfoliosCmd creates the portfolios command group
func NewPortfoliosCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolios",
		Aliases: []string{"portfolio", "pf"},
		Short:   "Manage your portfolios",
	}

	cmd.AddCommand(
		newPortfoliosListCmd(env),
		newPortfoliosCreateCmd(env),
		newPortfoliosShowCmd(env),
		newPortfoliosUpdateCmd(env),
		newPortfoliosDeleteCmd(env),
	)
	return cmd
}

func newPortfoliosListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your portfolios",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := env.portfolios().List(cmd.Context(), "")
			if !res.Success {
				return failure(res.Message)
			}

			if len(res.Data) == 0 {
				fmt.Fprintln(env.Out, "No portfolios found.")
				fmt.Fprintln(env.Out, "\nCreate one with: pagecraft portfolios create <title>")
				return nil
			}

			selected, _ := userconfig.GetSelectedPortfolio()

			w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tTITLE\tSLUG\tSTATUS\tUPDATED")
			fmt.Fprintln(w, "\t──\t─────\t────\t──────\t───────")
			for _, p := range res.Data {
				marker := ""
				if p.ID == selected {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					marker,
					p.ID,
					p.Title,
					p.Slug,
					status(p),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			return w.Flush()
		},
	}
}

func newPortfoliosCreateCmd(env *Env) *cobra.Command {
	var slug, template, contentFile string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(env.In, contentFile)
			if err != nil {
				return err
			}

			res := env.portfolios().Create(cmd.Context(), client.PortfolioInput{
				Title:    args[0],
				Slug:     slug,
				Template: template,
				Content:  content,
			})
			if !res.Success {
				return failure(res.Message)
			}

			if err := userconfig.SetSelectedPortfolio(res.Data.ID); err != nil {
				fmt.Fprintf(env.ErrOut, "Warning: failed to save selected portfolio: %v\n", err)
			}

			fmt.Fprintf(env.Out, "✓ %s: %s\n", res.Message, res.Data.Title)
			fmt.Fprintf(env.Out, "  ID:   %s\n", res.Data.ID)
			fmt.Fprintf(env.Out, "  Slug: %s\n", res.Data.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "URL slug (derived from the title if omitted)")
	cmd.Flags().StringVar(&template, "template", "", "Template name")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "JSON file with the portfolio content (- for stdin)")

	return cmd
}

func newPortfoliosShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a portfolio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolvePortfolio(cmd, env, args)
			if err != nil {
				return err
			}

			res := env.portfolios().Get(cmd.Context(), id)
			if !res.Success {
				return failure(res.Message)
			}

			p := res.Data
			fmt.Fprintf(env.Out, "%s\n", p.Title)
			fmt.Fprintf(env.Out, "  ID:       %s\n", p.ID)
			fmt.Fprintf(env.Out, "  Slug:     %s\n", p.Slug)
			fmt.Fprintf(env.Out, "  Template: %s\n", p.Template)
			fmt.Fprintf(env.Out, "  Status:   %s\n", status(*p))
			if p.Published {
				fmt.Fprintf(env.Out, "  URL:      %s/p/%s\n", env.Client.SiteURL(), p.Slug)
			}

			if len(p.Content) > 0 {
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, p.Content, "  ", "  "); err == nil {
					fmt.Fprintf(env.Out, "  Content:\n  %s\n", pretty.String())
				}
			}
			return nil
		},
	}
}

func newPortfoliosUpdateCmd(env *Env) *cobra.Command {
	var title, slug, template, contentFile string
	var publish, unpublish bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if publish && unpublish {
				return errors.New("--publish and --unpublish are mutually exclusive")
			}

			var patch client.PortfolioPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("slug") {
				patch.Slug = &slug
			}
			if flags.Changed("template") {
				patch.Template = &template
			}
			if contentFile != "" {
				content, err := readContent(env.In, contentFile)
				if err != nil {
					return err
				}
				patch.Content = content
			}
			if publish || unpublish {
				published := publish
				patch.Published = &published
			}

			res := env.portfolios().Update(cmd.Context(), args[0], patch)
			if !res.Success {
				return failure(res.Message)
			}

			fmt.Fprintf(env.Out, "✓ %s: %s (%s)\n", res.Message, res.Data.Title, status(*res.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&slug, "slug", "", "New URL slug")
	cmd.Flags().StringVar(&template, "template", "", "New template name")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "JSON file replacing the content (- for stdin)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Make the portfolio public")
	cmd.Flags().BoolVar(&unpublish, "unpublish", false, "Take the portfolio offline")

	return cmd
}

func newPortfoliosDeleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a portfolio and its SEO settings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := env.portfolios().Delete(cmd.Context(), args[0])
			if !res.Success {
				return failure(res.Message)
			}

			if selected, _ := userconfig.GetSelectedPortfolio(); selected == args[0] {
				_ = userconfig.SetSelectedPortfolio("")
			}

			fmt.Fprintf(env.Out, "✓ %s\n", res.Message)
			return nil
		},
	}
}

// resolvePortfolio returns the ID named in args, or asks which portfolio to use
func resolvePortfolio(cmd *cobra.Command, env *Env, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	list := env.portfolios().List(cmd.Context(), "")
	if !list.Success {
		return "", failure(list.Message)
	}
	return portfolioselect.Resolve("", list.Data, env.Prompter, env.ErrOut)
}

func readContent(in io.Reader, path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("content in %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func status(p client.Portfolio) string {
	if p.Published {
		return "published"
	}
	return "draft"
}
