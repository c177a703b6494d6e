package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pagecraft-dev/pagecraft/internal/auth"
	"github.com/pagecraft-dev/pagecraft/internal/config"
	"github.com/pagecraft-dev/pagecraft/internal/store/storetest"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.tasks))
	for i, task := range f.tasks {
		types[i] = task.Type()
	}
	return types
}

type fakeVerifier struct {
	identity *auth.Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*auth.Identity, error) {
	return f.identity, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:              "0",
			CORSOrigins:       []string{"http://localhost:3000"},
			AuthRatePerMinute: 6000,
		},
		Auth: config.AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Maintenance: config.MaintenanceConfig{
			Schedule:    "0 * * * *",
			RecentLimit: 3,
		},
	}
}

// trustingConfig accepts social claims without an ID token, as in local development
func trustingConfig() *config.Config {
	cfg := testConfig()
	cfg.Social.TrustUnverified = true
	return cfg
}

// harness is a running server plus a browser-like client
type harness struct {
	t        *testing.T
	server   *Server
	http     *httptest.Server
	client   *http.Client
	enqueuer *fakeEnqueuer
}

func newHarness(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()

	enqueuer := &fakeEnqueuer{}
	opts = append([]Option{WithDB(storetest.NewDB(t)), WithEnqueuer(enqueuer)}, opts...)

	srv, err := New(cfg, zerolog.Nop(), "test", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	h := &harness{t: t, server: srv, http: ts, enqueuer: enqueuer}
	h.client = h.newClient()
	return h
}

// newClient returns a client with its own cookie jar that does not follow redirects
func (h *harness) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// APICall sends a JSON request with the default client and decodes the JSON response
func (h *harness) APICall(method, path string, body interface{}) (int, map[string]interface{}) {
	return h.apiCallWith(h.client, method, path, body)
}

func (h *harness) apiCallWith(client *http.Client, method, path string, body interface{}) (int, map[string]interface{}) {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.http.URL+path, reader)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out), "%s %s", method, path)
	return resp.StatusCode, out
}

// get performs a plain GET and returns the response with the body closed
func (h *harness) get(client *http.Client, path string) *http.Response {
	h.t.Helper()
	resp, err := client.Get(h.http.URL + path)
	require.NoError(h.t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func (h *harness) signup(email string) map[string]interface{} {
	h.t.Helper()
	status, body := h.APICall("POST", "/api/auth/signup", map[string]interface{}{
		"email":    email,
		"password": "correct-horse",
		"name":     "Test User",
	})
	require.Equal(h.t, http.StatusCreated, status, body)
	return body["user"].(map[string]interface{})
}

func (h *harness) cookie(client *http.Client, name string) string {
	req, _ := http.NewRequest("GET", h.http.URL+"/", nil)
	for _, c := range client.Jar.Cookies(req.URL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
