package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
)

func TestStore_RoundTrip(t *testing.T) {
	tokens := auth.MemoryStore{}
	store := NewStore(tokens, "http://localhost:8080/api")

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, sess.Status)

	want := signedIn()
	want.ExpiresAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Identity, got.Identity)
	assert.Equal(t, Authenticated, got.Status)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	// sessions are kept per API URL
	other, err := NewStore(tokens, "https://api.example.com").Load()
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, other.Status)

	require.NoError(t, store.Clear())
	sess, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, sess.Status)
}

func TestStore_CorruptData(t *testing.T) {
	tokens := auth.MemoryStore{auth.SessionKey("http://x"): "{"}
	_, err := NewStore(tokens, "http://x").Load()
	assert.Error(t, err)
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{}.Expired(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}
