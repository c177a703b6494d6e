package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSEOCmd creates the seo command group
func NewSEOCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seo",
		Short: "View and edit a portfolio's search metadata",
	}
	cmd.AddCommand(newSEOGetCmd(env), newSEOSetCmd(env))
	return cmd
}

func newSEOGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get [portfolio-id]",
		Short: "Show SEO settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolvePortfolio(cmd, env, args)
			if err != nil {
				return err
			}

			res := env.seo().Get(cmd.Context(), id)
			if !res.Success {
				return failure(res.Message)
			}

			s := res.Data
			fmt.Fprintf(env.Out, "Title:         %s\n", s.Title)
			fmt.Fprintf(env.Out, "Description:   %s\n", s.Description)
			fmt.Fprintf(env.Out, "Keywords:      %s\n", strings.Join(s.Keywords, ", "))
			fmt.Fprintf(env.Out, "OG image:      %s\n", s.OGImage)
			fmt.Fprintf(env.Out, "Canonical URL: %s\n", s.CanonicalURL)
			fmt.Fprintf(env.Out, "Indexing:      %s\n", indexing(s.NoIndex))
			return nil
		},
	}
}

func newSEOSetCmd(env *Env) *cobra.Command {
	var title, description, keywords, ogImage, canonical string
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "set [portfolio-id]",
		Short: "Change SEO settings; fields without a flag keep their value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolvePortfolio(cmd, env, args)
			if err != nil {
				return err
			}

			hook := env.seo()
			current := hook.Get(cmd.Context(), id)
			if !current.Success {
				return failure(current.Message)
			}

			settings := *current.Data
			flags := cmd.Flags()
			if flags.Changed("title") {
				settings.Title = title
			}
			if flags.Changed("description") {
				settings.Description = description
			}
			if flags.Changed("keywords") {
				settings.Keywords = splitKeywords(keywords)
			}
			if flags.Changed("og-image") {
				settings.OGImage = ogImage
			}
			if flags.Changed("canonical-url") {
				settings.CanonicalURL = canonical
			}
			if flags.Changed("no-index") {
				settings.NoIndex = noIndex
			}

			res := hook.Update(cmd.Context(), id, settings)
			if !res.Success {
				return failure(res.Message)
			}

			fmt.Fprintf(env.Out, "✓ %s\n", res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Page title (max 70 characters)")
	cmd.Flags().StringVar(&description, "description", "", "Meta description (max 320 characters)")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Comma separated keywords")
	cmd.Flags().StringVar(&ogImage, "og-image", "", "Open Graph image URL")
	cmd.Flags().StringVar(&canonical, "canonical-url", "", "Canonical URL")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Ask search engines not to index the page")

	return cmd
}

func splitKeywords(raw string) []string {
	keywords := []string{}
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func indexing(noIndex bool) string {
	if noIndex {
		return "disabled (noindex)"
	}
	return "allowed"
}
