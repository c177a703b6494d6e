// Package portfolioselect decides which portfolio a command acts on when none was named.
package portfolioselect

import (
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/userconfig"
)

// ErrNoPortfolios is returned when there is nothing to choose from
var ErrNoPortfolios = errors.New("you have no portfolios yet. Create one with: pagecraft portfolios create <title>")

// Prompter asks the user to pick one of the portfolios and returns its index
type Prompter interface {
	Select(portfolios []client.Portfolio) (int, error)
}

// Resolve determines which portfolio to use based on the following priority:
// 1. If id is provided, use it
// 2. If user has a selected portfolio in their local config that still exists, use that
// 3. If there is only one portfolio, use it
// 4. Otherwise, prompt user to select one
func Resolve(id string, portfolios []client.Portfolio, prompter Prompter, warn io.Writer) (string, error) {
	// Priority 1: explicit ID
	if id != "" {
		return id, nil
	}

	if len(portfolios) == 0 {
		return "", ErrNoPortfolios
	}

	// Priority 2: selected portfolio from user config
	selected, err := userconfig.GetSelectedPortfolio()
	if err != nil {
		return "", fmt.Errorf("failed to load user config: %w", err)
	}
	if selected != "" {
		if findByID(portfolios, selected) >= 0 {
			return selected, nil
		}
		// Selected portfolio no longer exists, clear it and continue
		_ = userconfig.SetSelectedPortfolio("")
	}

	// Priority 3: only one portfolio
	if len(portfolios) == 1 {
		remember(portfolios[0].ID, warn)
		return portfolios[0].ID, nil
	}

	// Priority 4: ask
	index, err := prompter.Select(portfolios)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(portfolios) {
		return "", fmt.Errorf("invalid selection %d", index)
	}

	remember(portfolios[index].ID, warn)
	return portfolios[index].ID, nil
}

func remember(id string, warn io.Writer) {
	if err := userconfig.SetSelectedPortfolio(id); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(warn, "Warning: failed to save selected portfolio: %v\n", err)
	}
}

func findByID(portfolios []client.Portfolio, id string) int {
	for i := range portfolios {
		if portfolios[i].ID == id {
			return i
		}
	}
	return -1
}

// PromptUI shows an interactive terminal list
type PromptUI struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// Select implements Prompter
func (p PromptUI) Select(portfolios []client.Portfolio) (int, error) {
	type option struct {
		Label string
	}

	options := make([]option, len(portfolios))
	for i, pf := range portfolios {
		status := "draft"
		if pf.Published {
			status = "published"
		}
		options[i] = option{Label: fmt.Sprintf("%s (/p/%s, %s)", pf.Title, pf.Slug, status)}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a portfolio",
		Items:     options,
		Templates: templates,
		Size:      10,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return -1, fmt.Errorf("portfolio selection cancelled: %w", err)
	}
	return index, nil
}
