package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/commands"
	"github.com/pagecraft-dev/pagecraft/internal/cli/portfolioselect"
	"github.com/pagecraft-dev/pagecraft/internal/cli/session"
	"github.com/pagecraft-dev/pagecraft/internal/cli/userconfig"
	"github.com/pagecraft-dev/pagecraft/internal/logger"
)

// Options wires the CLI to its surroundings. Zero values mean the real thing:
// the OS keychain, the terminal and Google configured from the environment.
type Options struct {
	Version  string
	Tokens   auth.TokenStore
	Identity commands.IdentityProvider
	Prompter portfolioselect.Prompter
	In       io.Reader
	Out      io.Writer
	ErrOut   io.Writer
}

// skipBridge lists commands that must not touch the backend session first
var skipBridge = map[string]bool{
	"pagecraft login":          true,
	"pagecraft logout":         true,
	"pagecraft signup":         true,
	"pagecraft version":        true,
	"pagecraft open":           true,
	"pagecraft help":           true,
	"pagecraft config set-url": true,
	"pagecraft config show":    true,
}

// NewRootCmd builds the pagecraft command tree
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.Default
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	env := &commands.Env{
		Version: opts.Version,
		In:      opts.In,
		Out:     opts.Out,
		ErrOut:  opts.ErrOut,
		Now:     time.Now,
	}

	var apiURL string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "pagecraft",
		Short: "Pagecraft - build and publish your portfolio",
		Long: `Pagecraft CLI - manage your portfolios, their SEO settings and
recently used items from the terminal.

Sign in with 'pagecraft login' (or 'pagecraft login --google').`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupEnv(env, opts, apiURL, verbose); err != nil {
				return err
			}
			if skipBridge[cmd.CommandPath()] {
				return nil
			}
			env.ObserveSession(cmd.Context())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (or set PAGECRAFT_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and session handling")

	rootCmd.SetIn(opts.In)
	rootCmd.SetOut(opts.Out)
	rootCmd.SetErr(opts.ErrOut)

	rootCmd.AddCommand(
		commands.NewVersionCmd(env),
		commands.NewSignupCmd(env),
		commands.NewLoginCmd(env),
		commands.NewLogoutCmd(env),
		commands.NewWhoamiCmd(env),
		commands.NewPortfoliosCmd(env),
		commands.NewSEOCmd(env),
		commands.NewRecentCmd(env),
		commands.NewOpenCmd(env),
		commands.NewConfigCmd(env),
	)

	return rootCmd
}

// setupEnv resolves the API URL and builds the client, its cookie jar and the session bridge
func setupEnv(env *commands.Env, opts Options, flagURL string, verbose bool) error {
	env.Logger = logger.NewCLI(opts.ErrOut, verbose)

	explicit := flagURL
	if explicit == "" && os.Getenv(client.BaseURLEnv) == "" {
		ucfg, err := userconfig.Load()
		if err != nil {
			return err
		}
		explicit = ucfg.APIURL
	}
	env.APIURL = client.ResolveBaseURL(explicit)

	jar, err := client.NewPersistentJar(opts.Tokens, env.APIURL, env.Logger)
	if err != nil {
		return err
	}
	env.Jar = jar

	env.Client, err = client.New(env.APIURL,
		client.WithJar(jar),
		client.WithLogger(env.Logger),
		client.WithSessionTerminator(client.TerminatorFunc(env.EndSession)),
	)
	if err != nil {
		return err
	}

	env.Sessions = session.NewStore(opts.Tokens, env.APIURL)
	env.Bridge = session.NewBridge(env.Client, env.Logger)

	env.Identity = opts.Identity
	if env.Identity == nil {
		if id := os.Getenv("PAGECRAFT_GOOGLE_CLIENT_ID"); id != "" {
			env.Identity = session.NewGoogleProvider(id, os.Getenv("PAGECRAFT_GOOGLE_CLIENT_SECRET"))
		}
	}

	env.Prompter = opts.Prompter
	if env.Prompter == nil {
		env.Prompter = portfolioselect.PromptUI{}
	}

	return nil
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd := NewRootCmd(Options{Version: version})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
