package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/session"
	"github.com/pagecraft-dev/pagecraft/internal/server/servertest"
)

type fakeIdentity struct {
	sess      session.Session
	signIns   int
	refreshes int
}

func (f *fakeIdentity) SignIn(ctx context.Context, prompt func(session.DeviceCode)) (session.Session, error) {
	f.signIns++
	prompt(session.DeviceCode{UserCode: "ABCD-EFGH", VerificationURL: "https://www.google.com/device"})
	return f.sess, nil
}

func (f *fakeIdentity) Refresh(ctx context.Context, sess session.Session) (session.Session, error) {
	f.refreshes++
	renewed := f.sess
	renewed.ExpiresAt = time.Now().Add(time.Hour)
	return renewed, nil
}

type firstPrompter struct{ calls int }

func (p *firstPrompter) Select(portfolios []client.Portfolio) (int, error) {
	p.calls++
	return 0, nil
}

type cliHarness struct {
	t        *testing.T
	apiURL   string
	tokens   auth.MemoryStore
	identity *fakeIdentity
	prompter *firstPrompter
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(client.BaseURLEnv, "")
	t.Setenv("PAGECRAFT_EMAIL", "")
	t.Setenv("PAGECRAFT_PASSWORD", "")

	apiURL, _ := servertest.Start(t)
	return &cliHarness{
		t:      t,
		apiURL: apiURL,
		tokens: auth.MemoryStore{},
		identity: &fakeIdentity{sess: session.Session{
			Status: session.Authenticated,
			Identity: session.Identity{
				Email:    "grace@example.com",
				Name:     "Grace Hopper",
				Provider: "google",
				IDToken:  "id-token",
			},
			ExpiresAt:    time.Now().Add(time.Hour),
			RefreshToken: "refresh",
		}},
		prompter: &firstPrompter{},
	}
}

// run executes one CLI invocation, like a fresh process sharing the keychain and HOME
func (h *cliHarness) run(args ...string) (string, string, error) {
	h.t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(Options{
		Version:  "test",
		Tokens:   h.tokens,
		Identity: h.identity,
		Prompter: h.prompter,
		In:       strings.NewReader(""),
		Out:      &out,
		ErrOut:   &errOut,
	})
	cmd.SetArgs(append([]string{"--api-url", h.apiURL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	require.NoError(h.t, err, "pagecraft %s\nstderr: %s", strings.Join(args, " "), errOut)
	return out
}

func TestCLI_EmailAccountWorkflow(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun("signup", "--email", "ada@example.com", "--password", "correct-horse", "--name", "Ada")
	assert.Contains(t, out, "Account created")

	out = h.mustRun("whoami")
	assert.Contains(t, out, "Ada (ada@example.com) [email]")

	out = h.mustRun("portfolios", "ls")
	assert.Contains(t, out, "No portfolios found.")

	out = h.mustRun("portfolios", "create", "My Work", "--slug", "my-work")
	assert.Contains(t, out, "Portfolio created: My Work")

	out = h.mustRun("portfolios", "ls")
	assert.Contains(t, out, "my-work")
	assert.Contains(t, out, "draft")

	// the created portfolio is remembered, so no id and no prompt
	out = h.mustRun("portfolios", "show")
	assert.Contains(t, out, "Slug:     my-work")
	assert.Zero(t, h.prompter.calls)

	id := strings.TrimSpace(strings.TrimPrefix(lineWith(out, "ID:"), "  ID:"))
	require.NotEmpty(t, id)

	out = h.mustRun("portfolios", "update", id, "--publish", "--title", "Selected Work")
	assert.Contains(t, out, "Portfolio updated: Selected Work (published)")

	h.mustRun("seo", "set", "--title", "Ada's portfolio", "--keywords", "Go, design, go")
	h.mustRun("seo", "set", id, "--no-index")
	out = h.mustRun("seo", "get")
	assert.Contains(t, out, "Title:         Ada's portfolio")
	assert.Contains(t, out, "Keywords:      go, design")
	assert.Contains(t, out, "disabled (noindex)")

	h.mustRun("recent", "add", "skill", "Go")
	h.mustRun("recent", "add", "skill", "SQL")
	h.mustRun("recent", "add", "skill", "Go")
	out = h.mustRun("recent", "ls", "--type", "skill")
	assert.Equal(t, 1, strings.Count(out, "Go"), out)
	assert.Less(t, strings.Index(out, "Go"), strings.Index(out, "SQL"), "newest first")

	out = h.mustRun("open", "/login")
	assert.Equal(t, strings.TrimSuffix(h.apiURL, "/api")+"/\n", out)

	h.mustRun("portfolios", "rm", id)
	out = h.mustRun("portfolios", "ls")
	assert.Contains(t, out, "No portfolios found.")

	out = h.mustRun("logout")
	assert.Contains(t, out, "Logged out")
	assert.Empty(t, h.tokens)

	out = h.mustRun("whoami")
	assert.Contains(t, out, "Not signed in")

	out = h.mustRun("open", "dashboard")
	assert.Equal(t, strings.TrimSuffix(h.apiURL, "/api")+"/login\n", out)
}

func TestCLI_LoginFailure(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("signup", "--email", "ada@example.com", "--password", "correct-horse")
	h.mustRun("logout")

	_, _, err := h.run("login", "--email", "ada@example.com", "--password", "wrong-horse")
	require.Error(t, err)
	assert.Equal(t, "login failed: Invalid email or password", err.Error())

	_, _, err = h.run("login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-interactive mode")

	out := h.mustRun("login", "--email", "ada@example.com", "--password", "correct-horse")
	assert.Contains(t, out, "Login successful")
}

func TestCLI_ExpiredBackendSessionAsksToSignIn(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("signup", "--email", "ada@example.com", "--password", "correct-horse")

	// the backend forgets this client entirely
	delete(h.tokens, auth.CookiesKey(h.apiURL))

	_, _, err := h.run("portfolios", "ls")
	require.Error(t, err)
	assert.Equal(t, "Your session has expired. Run 'pagecraft login' to sign in again.", err.Error())
}

func TestCLI_GoogleLoginAndSessionSync(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun("login", "--google")
	assert.Contains(t, out, "enter the code ABCD-EFGH")
	assert.Contains(t, out, "Grace Hopper (grace@example.com) via Google")
	assert.Equal(t, 1, h.identity.signIns)

	out = h.mustRun("whoami")
	assert.Contains(t, out, "grace@example.com")
	assert.Contains(t, out, "[google]")

	// Backend cookies vanish while the Google session is still valid:
	// the next command restores them through social sync.
	delete(h.tokens, auth.CookiesKey(h.apiURL))

	out = h.mustRun("portfolios", "ls")
	assert.Contains(t, out, "No portfolios found.")
	assert.Contains(t, h.tokens, auth.CookiesKey(h.apiURL))

	// An expired Google session is renewed before it is observed
	sess, err := session.NewStore(h.tokens, h.apiURL).Load()
	require.NoError(t, err)
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, session.NewStore(h.tokens, h.apiURL).Save(sess))

	h.mustRun("recent", "ls")
	assert.Equal(t, 1, h.identity.refreshes)

	h.mustRun("logout")
	sess, err = session.NewStore(h.tokens, h.apiURL).Load()
	require.NoError(t, err)
	assert.Equal(t, session.Unauthenticated, sess.Status)
}

func TestCLI_GoogleLoginNotConfigured(t *testing.T) {
	h := newCLIHarness(t)
	t.Setenv("PAGECRAFT_GOOGLE_CLIENT_ID", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(Options{Tokens: h.tokens, Out: &out, ErrOut: &errOut, In: strings.NewReader("")})
	cmd.SetArgs([]string{"--api-url", h.apiURL, "login", "--google"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google sign-in is not configured")
}

func TestCLI_Config(t *testing.T) {
	h := newCLIHarness(t)

	_, _, err := h.run("config", "set-url", "not a url")
	require.Error(t, err)

	out := h.mustRun("config", "set-url", "https://pagecraft.example.com/api")
	assert.Contains(t, out, "API URL set to https://pagecraft.example.com/api")

	// without --api-url the stored URL is used
	var stdout bytes.Buffer
	cmd := NewRootCmd(Options{Tokens: h.tokens, Out: &stdout, ErrOut: &bytes.Buffer{}, In: strings.NewReader("")})
	cmd.SetArgs([]string{"config", "show"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "API URL:            https://pagecraft.example.com/api")
}

func TestCLI_Version(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun("version")
	assert.Contains(t, out, "pagecraft version test")
	assert.Contains(t, out, "server version test")
}

func lineWith(out, prefix string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return line
		}
	}
	return ""
}
