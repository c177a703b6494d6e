package portfolioselect

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/userconfig"
)

type fakePrompter struct {
	index int
	err   error
	calls int
}

func (f *fakePrompter) Select(portfolios []client.Portfolio) (int, error) {
	f.calls++
	return f.index, f.err
}

var twoPortfolios = []client.Portfolio{
	{ID: "a", Title: "First", Slug: "first"},
	{ID: "b", Title: "Second", Slug: "second"},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		selected   string
		portfolios []client.Portfolio
		prompter   *fakePrompter
		want       string
		wantSaved  string
		wantPrompt bool
		wantErr    error
	}{
		{
			name:       "explicit id wins",
			id:         "zzz",
			selected:   "a",
			portfolios: twoPortfolios,
			prompter:   &fakePrompter{},
			want:       "zzz",
			wantSaved:  "a",
		},
		{
			name:       "remembered selection",
			selected:   "b",
			portfolios: twoPortfolios,
			prompter:   &fakePrompter{},
			want:       "b",
			wantSaved:  "b",
		},
		{
			name:       "single portfolio is remembered",
			portfolios: twoPortfolios[:1],
			prompter:   &fakePrompter{},
			want:       "a",
			wantSaved:  "a",
		},
		{
			name:       "stale selection falls through to prompt",
			selected:   "gone",
			portfolios: twoPortfolios,
			prompter:   &fakePrompter{index: 1},
			want:       "b",
			wantSaved:  "b",
			wantPrompt: true,
		},
		{
			name:     "no portfolios",
			prompter: &fakePrompter{},
			wantErr:  ErrNoPortfolios,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if tt.selected != "" {
				require.NoError(t, userconfig.SetSelectedPortfolio(tt.selected))
			}

			got, err := Resolve(tt.id, tt.portfolios, tt.prompter, &bytes.Buffer{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPrompt, tt.prompter.calls == 1)

			saved, err := userconfig.GetSelectedPortfolio()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, saved)
		})
	}
}

func TestResolve_PromptCancelled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cancelled := errors.New("^C")

	_, err := Resolve("", twoPortfolios, &fakePrompter{err: cancelled}, &bytes.Buffer{})
	assert.ErrorIs(t, err, cancelled)

	selected, err := userconfig.GetSelectedPortfolio()
	require.NoError(t, err)
	assert.Empty(t, selected)
}
