package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/session"
)

// NewSignupCmd creates the signup command
func NewSignupCmd(env *Env) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = credential(email, "PAGECRAFT_EMAIL")
			if email == "" {
				return errors.New("email is required (use --email flag or PAGECRAFT_EMAIL env var)")
			}
			password = credential(password, "PAGECRAFT_PASSWORD")
			if password == "" {
				var err error
				if password, err = env.readPassword("Choose a password: "); err != nil {
					return err
				}
			}

			user, err := env.Client.Signup(cmd.Context(), email, password, name)
			if err != nil {
				return errors.New(client.Message(err))
			}

			fmt.Fprintln(env.Out, "✓ Account created!")
			fmt.Fprintf(env.Out, "  User: %s\n", describeUser(user))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PAGECRAFT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PAGECRAFT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string
	var google bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if google {
				return runGoogleLogin(cmd, env)
			}

			email = credential(email, "PAGECRAFT_EMAIL")
			if email == "" {
				return errors.New("email is required (use --email flag or PAGECRAFT_EMAIL env var)")
			}
			password = credential(password, "PAGECRAFT_PASSWORD")
			if password == "" {
				var err error
				if password, err = env.readPassword("Password: "); err != nil {
					return err
				}
			}

			user, err := env.Client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %s", client.Message(err))
			}

			fmt.Fprintln(env.Out, "✓ Login successful!")
			fmt.Fprintf(env.Out, "  User: %s\n", describeUser(user))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PAGECRAFT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PAGECRAFT_PASSWORD, will prompt if not provided)")
	cmd.Flags().BoolVar(&google, "google", false, "Sign in with a Google account")

	return cmd
}

func runGoogleLogin(cmd *cobra.Command, env *Env) error {
	if env.Identity == nil {
		return errors.New("google sign-in is not configured (set PAGECRAFT_GOOGLE_CLIENT_ID and PAGECRAFT_GOOGLE_CLIENT_SECRET)")
	}

	sess, err := env.Identity.SignIn(cmd.Context(), func(code session.DeviceCode) {
		fmt.Fprintf(env.Out, "To sign in, visit %s and enter the code %s\n", code.VerificationURL, code.UserCode)
		fmt.Fprintln(env.Out, "Waiting for approval...")
	})
	if err != nil {
		return fmt.Errorf("google sign-in failed: %w", err)
	}

	if err := env.Sessions.Save(sess); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	outcome, err := env.Bridge.Observe(cmd.Context(), sess)
	if err != nil {
		return fmt.Errorf("signed in with Google, but the server did not accept the session: %s", client.Message(err))
	}
	env.Logger.Debug().Stringer("outcome", outcome).Msg("Session synchronized")

	fmt.Fprintln(env.Out, "✓ Login successful!")
	fmt.Fprintf(env.Out, "  User: %s (%s) via Google\n", sess.Identity.Name, sess.Identity.Email)
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Local credentials go even when the server cannot be reached
			if err := env.Client.Logout(cmd.Context()); err != nil {
				env.Logger.Warn().Err(err).Msg("Server logout failed")
			}
			if err := env.Jar.Clear(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			if err := env.Sessions.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			fmt.Fprintln(env.Out, "✓ Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := env.Client.Me(cmd.Context())
			if client.IsUnauthorized(err) {
				fmt.Fprintln(env.Out, "Not signed in. Run 'pagecraft login' to sign in.")
				return nil
			}
			if err != nil {
				return errors.New(client.Message(err))
			}

			fmt.Fprintln(env.Out, describeUser(user))
			fmt.Fprintf(env.Out, "  Server: %s\n", env.APIURL)
			return nil
		},
	}
}

func describeUser(user *client.User) string {
	if user == nil {
		return ""
	}
	if user.Name == "" {
		return fmt.Sprintf("%s [%s]", user.Email, user.Provider)
	}
	return fmt.Sprintf("%s (%s) [%s]", user.Name, user.Email, user.Provider)
}
