package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers 401 on protected paths until a refresh succeeds
type fakeBackend struct {
	mu            sync.Mutex
	refreshed     bool
	refreshStatus int
	refreshDelay  time.Duration
	refreshCalls  int32
	calls         []recordedCall
}

type recordedCall struct {
	Method string
	Path   string
	Body   string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/api/auth/refresh":
		atomic.AddInt32(&f.refreshCalls, 1)
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		if f.refreshStatus != 0 && f.refreshStatus != http.StatusOK {
			w.WriteHeader(f.refreshStatus)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid or expired refresh token"}`))
			return
		}
		f.mu.Lock()
		f.refreshed = true
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/auth/login":
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid email or password"}`))
	default:
		f.mu.Lock()
		ok := f.refreshed
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Authentication required"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "path": r.URL.Path, "echo": string(body)})
	}
}

func (f *fakeBackend) callsTo(path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, backend http.Handler, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestIntercept_RefreshesOnceAndReplays(t *testing.T) {
	backend := &fakeBackend{}
	var terminated int32
	c := newTestClient(t, backend, WithSessionTerminator(TerminatorFunc(func(context.Context, string) {
		atomic.AddInt32(&terminated, 1)
	})))

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "/portfolios/abc",
		Body:   map[string]string{"title": "Updated"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.refreshCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&terminated))

	calls := backend.callsTo("/api/portfolios/abc")
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1], "replay must carry the same method, path and body")
	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.JSONEq(t, `{"title":"Updated"}`, calls[1].Body)
}

func TestIntercept_RetriedRequestIsNotInterceptedAgain(t *testing.T) {
	// refresh "succeeds" but the replay still gets 401
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Authentication required"}`))
	})

	var refreshes, protected int32
	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			atomic.AddInt32(&refreshes, 1)
		} else {
			atomic.AddInt32(&protected, 1)
		}
		backend.ServeHTTP(w, r)
	})

	var terminated int32
	c := newTestClient(t, counting, WithSessionTerminator(TerminatorFunc(func(context.Context, string) {
		atomic.AddInt32(&terminated, 1)
	})))

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/auth/me"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var refreshErr *RefreshError
	assert.False(t, errors.As(err, &refreshErr), "a 401 on the replay is returned as-is")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&protected))
	assert.Equal(t, int32(0), atomic.LoadInt32(&terminated))

	// an explicitly retried descriptor passes straight through
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/auth/me"}.asRetry())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestIntercept_RefreshFailureTerminatesOnce(t *testing.T) {
	backend := &fakeBackend{refreshStatus: http.StatusUnauthorized}

	var terminated int32
	var redirect string
	c := newTestClient(t, backend,
		WithSignOutRedirect("/login?expired=1"),
		WithSessionTerminator(TerminatorFunc(func(_ context.Context, location string) {
			atomic.AddInt32(&terminated, 1)
			redirect = location
		})),
	)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/portfolios"})
	require.Error(t, err)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(refreshErr.Refresh))

	var apiErr *Error
	require.ErrorAs(t, refreshErr.Refresh, &apiErr)
	assert.Equal(t, "/auth/refresh", apiErr.Path)
	assert.Equal(t, "Invalid or expired refresh token", apiErr.Message)
	assert.True(t, errors.Is(err, refreshErr.Original))

	assert.Equal(t, int32(1), atomic.LoadInt32(&terminated))
	assert.Equal(t, "/login?expired=1", redirect)
	assert.Len(t, backend.callsTo("/api/portfolios"), 1, "no replay after a failed refresh")
	assert.Contains(t, Message(err), "session has expired")
}

func TestIntercept_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	backend := &fakeBackend{refreshDelay: 50 * time.Millisecond}
	c := newTestClient(t, backend)

	// all requests must observe the 401 before the refresh lands
	gate := make(chan struct{})
	const n = 5

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			_, errs[i] = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/recent"})
		}(i)
	}
	close(gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.refreshCalls))
}

func TestIntercept_ConcurrentRefreshFailureTerminatesOnce(t *testing.T) {
	backend := &fakeBackend{refreshStatus: http.StatusUnauthorized, refreshDelay: 50 * time.Millisecond}

	var terminated int32
	c := newTestClient(t, backend, WithSessionTerminator(TerminatorFunc(func(context.Context, string) {
		atomic.AddInt32(&terminated, 1)
	})))

	var wg sync.WaitGroup
	const n = 4
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/portfolios"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var refreshErr *RefreshError
		assert.ErrorAs(t, err, &refreshErr)
	}
	// each refresh that actually ran and failed ends the session exactly once
	assert.Equal(t, atomic.LoadInt32(&backend.refreshCalls), atomic.LoadInt32(&terminated))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&terminated), int32(1))
}

func TestIntercept_CredentialPathsAreNotRefreshed(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend)

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": "a@b.c", "password": "nope"},
	})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid email or password", Message(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&backend.refreshCalls))
}

func TestIntercept_NonUnauthorizedErrorsPassThrough(t *testing.T) {
	var refreshes int32
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			atomic.AddInt32(&refreshes, 1)
		case "/api/portfolios/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"Portfolio not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
		}
	})
	c := newTestClient(t, backend)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/portfolios/missing"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, "Portfolio not found", Message(err))

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/recent"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshes))
}
