package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
	"github.com/pagecraft-dev/pagecraft/internal/server/servertest"
)

func TestAPI_AgainstServer(t *testing.T) {
	apiURL, _ := servertest.Start(t)
	ctx := context.Background()

	store := auth.MemoryStore{}
	jar, err := NewPersistentJar(store, apiURL, zerolog.Nop())
	require.NoError(t, err)

	var terminated int32
	c, err := New(apiURL, WithJar(jar), WithSessionTerminator(TerminatorFunc(func(context.Context, string) {
		atomic.AddInt32(&terminated, 1)
		_ = jar.Clear()
	})))
	require.NoError(t, err)

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := c.Me(ctx)
		require.Error(t, err)
		// no refresh cookie either, so the refresh fails and the session is ended
		var refreshErr *RefreshError
		assert.ErrorAs(t, err, &refreshErr)
		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&terminated))
	})

	t.Run("signup and portfolio lifecycle", func(t *testing.T) {
		user, err := c.Signup(ctx, "ada@example.com", "correct-horse", "Ada")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.True(t, jar.HasCredentials())

		me, err := c.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, user.ID, me.ID)

		created, err := c.CreatePortfolio(ctx, PortfolioInput{
			Title:   "My Work",
			Slug:    "my-work",
			Content: json.RawMessage(`{"sections":[]}`),
		})
		require.NoError(t, err)
		assert.Equal(t, "my-work", created.Slug)
		assert.False(t, created.Published)

		published := true
		updated, err := c.UpdatePortfolio(ctx, created.ID, PortfolioPatch{Published: &published})
		require.NoError(t, err)
		assert.True(t, updated.Published)
		assert.Equal(t, "My Work", updated.Title)

		list, err := c.ListPortfolios(ctx, "")
		require.NoError(t, err)
		require.Len(t, list, 1)

		seo, err := c.UpdateSEO(ctx, created.ID, SEOSettings{
			Title:    "Ada's work",
			Keywords: []string{"Design", "design", "go"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"design", "go"}, seo.Keywords)

		seo, err = c.GetSEO(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada's work", seo.Title)

		require.NoError(t, c.DeletePortfolio(ctx, created.ID))
		_, err = c.GetPortfolio(ctx, created.ID)
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
		assert.Equal(t, "Portfolio not found", Message(err))
	})

	t.Run("recent items upsert", func(t *testing.T) {
		first, err := c.RecordRecent(ctx, "skill", "Go")
		require.NoError(t, err)
		_, err = c.RecordRecent(ctx, "skill", "SQL")
		require.NoError(t, err)
		again, err := c.RecordRecent(ctx, "skill", "Go")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		items, err := c.ListRecent(ctx, "skill", 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Go", items[0].Content)
	})

	t.Run("expired access token is refreshed transparently", func(t *testing.T) {
		origin, _ := url.Parse(apiURL)
		jar.SetCookies(origin, []*http.Cookie{{Name: "pc_access", Value: "", Path: "/", MaxAge: -1}})

		before := atomic.LoadInt32(&terminated)
		me, err := c.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", me.Email)
		assert.Equal(t, before, atomic.LoadInt32(&terminated))
	})

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, c.Logout(ctx))
		assert.False(t, jar.HasCredentials())
		assert.Empty(t, store)
	})
}

func TestAPI_LoginFailureIsNotRefreshed(t *testing.T) {
	apiURL, _ := servertest.Start(t)

	var terminated int32
	c, err := New(apiURL, WithSessionTerminator(TerminatorFunc(func(context.Context, string) {
		atomic.AddInt32(&terminated, 1)
	})))
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "nobody@example.com", "whatever-password")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, "Invalid email or password", Message(err))
	assert.Zero(t, atomic.LoadInt32(&terminated))
}

func TestAPI_Health(t *testing.T) {
	apiURL, _ := servertest.Start(t)

	c, err := New(apiURL)
	require.NoError(t, err)

	info, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "online", info.Status)
	assert.Equal(t, "test", info.Version)
}
