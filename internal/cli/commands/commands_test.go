package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
	"github.com/pagecraft-dev/pagecraft/internal/cli/session"
)

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"go", "design"}, splitKeywords(" go, ,design ,"))
	assert.Equal(t, []string{}, splitKeywords(""))
}

func TestReadContent(t *testing.T) {
	content, err := readContent(nil, "")
	require.NoError(t, err)
	assert.Nil(t, content)

	content, err = readContent(strings.NewReader(`{"sections":[]}`), "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sections":[]}`, string(content))

	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"about":"hi"`), 0644))
	_, err = readContent(nil, path)
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = readContent(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read content")
}

func TestDescribeUser(t *testing.T) {
	assert.Equal(t, "Ada (ada@example.com) [email]", describeUser(&client.User{Name: "Ada", Email: "ada@example.com", Provider: "email"}))
	assert.Equal(t, "ada@example.com [google]", describeUser(&client.User{Email: "ada@example.com", Provider: "google"}))
	assert.Empty(t, describeUser(nil))
}

func TestCredential(t *testing.T) {
	t.Setenv("PAGECRAFT_EMAIL", "env@example.com")
	assert.Equal(t, "flag@example.com", credential("flag@example.com", "PAGECRAFT_EMAIL"))
	assert.Equal(t, "env@example.com", credential("", "PAGECRAFT_EMAIL"))
}

// lockedKeychain reads fine but refuses to delete
type lockedKeychain struct {
	auth.MemoryStore
}

func (lockedKeychain) DeleteToken(string) error {
	return errors.New("keychain is locked")
}

type expiredIdentity struct{}

func (expiredIdentity) SignIn(context.Context, func(session.DeviceCode)) (session.Session, error) {
	return session.Session{}, errors.New("not used")
}

func (expiredIdentity) Refresh(context.Context, session.Session) (session.Session, error) {
	return session.Session{}, errors.New("refresh token revoked")
}

func TestRenewSession_LogsFailedClear(t *testing.T) {
	var logs bytes.Buffer
	env := &Env{
		Sessions: session.NewStore(lockedKeychain{auth.MemoryStore{}}, "http://localhost:8080/api"),
		Identity: expiredIdentity{},
		Logger:   zerolog.New(&logs),
		Now:      time.Now,
	}

	sess := env.renewSession(context.Background(), session.Session{
		Status:   session.Authenticated,
		Identity: session.Identity{Email: "ada@example.com", Provider: "google"},
	})

	assert.Equal(t, session.Unauthenticated, sess.Status)
	assert.Contains(t, logs.String(), "Failed to clear expired sign-in session")
	assert.Contains(t, logs.String(), "keychain is locked")
}
