// Package commands implements the pagecraft subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/portfolioselect"
	"github.com/pagecraft-dev/pagecraft/internal/cli/resources"
	"github.com/pagecraft-dev/pagecraft/internal/cli/session"
)

// IdentityProvider signs users in with a social account
type IdentityProvider interface {
	SignIn(ctx context.Context, prompt func(session.DeviceCode)) (session.Session, error)
	Refresh(ctx context.Context, sess session.Session) (session.Session, error)
}

// Env is what every command runs against. The root command fills it in
// before any subcommand executes.
type Env struct {
	Version string
	APIURL  string

	Client   *client.Client
	Jar      *client.PersistentJar
	Sessions *session.Store
	Bridge   *session.Bridge
	Identity IdentityProvider // nil when social sign-in is not configured
	Prompter portfolioselect.Prompter

	Logger zerolog.Logger
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
	Now    func() time.Time
}

func (e *Env) portfolios() *resources.Portfolios {
	return resources.NewPortfolios(e.Client, e.Logger)
}

func (e *Env) seo() *resources.SEO {
	return resources.NewSEO(e.Client, e.Logger)
}

func (e *Env) recent() *resources.Recent {
	return resources.NewRecent(e.Client, e.Logger)
}

// ObserveSession feeds the stored identity-provider session to the sync bridge,
// renewing it first when it has expired. Failures are logged, never fatal.
func (e *Env) ObserveSession(ctx context.Context) {
	sess, err := e.Sessions.Load()
	if err != nil {
		e.Logger.Warn().Err(err).Msg("Ignoring unreadable sign-in session")
		return
	}

	if sess.Status == session.Authenticated && sess.Expired(e.Now()) {
		sess = e.renewSession(ctx, sess)
	}

	outcome, err := e.Bridge.Observe(ctx, sess)
	if err != nil {
		fmt.Fprintf(e.ErrOut, "Warning: could not restore your %s session: %s\n", sess.Identity.Provider, client.Message(err))
		return
	}
	e.Logger.Debug().Stringer("outcome", outcome).Msg("Session observed")
}

func (e *Env) renewSession(ctx context.Context, sess session.Session) session.Session {
	if e.Identity == nil {
		return session.Session{Status: session.Unauthenticated}
	}

	renewed, err := e.Identity.Refresh(ctx, sess)
	if err != nil {
		e.Logger.Info().Err(err).Msg("Sign-in session expired")
		if err := e.Sessions.Clear(); err != nil {
			e.Logger.Warn().Err(err).Msg("Failed to clear expired sign-in session")
		}
		return session.Session{Status: session.Unauthenticated}
	}
	if err := e.Sessions.Save(renewed); err != nil {
		e.Logger.Warn().Err(err).Msg("Failed to store renewed session")
	}
	return renewed
}

// EndSession is the client's session terminator: the backend cookies are
// gone for good, so drop them locally too
func (e *Env) EndSession(ctx context.Context, redirect string) {
	if err := e.Jar.Clear(); err != nil {
		e.Logger.Warn().Err(err).Msg("Failed to clear stored cookies")
	}
	e.Logger.Info().Str("sign_in", e.Client.SiteURL()+redirect).Msg("Signed out")
}

// failure turns an unsuccessful hook result into a command error
func failure(message string) error {
	return errors.New(message)
}

// credential picks the flag value, then the environment variable
func credential(flag, envVar string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(envVar)
}

// readPassword prompts on the terminal. Piped input is refused so scripts use the flag or env var.
func (e *Env) readPassword(prompt string) (string, error) {
	f, ok := e.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errors.New("password is required in non-interactive mode (use --password flag or PAGECRAFT_PASSWORD env var)")
	}

	fmt.Fprint(e.Out, prompt)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(e.Out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
