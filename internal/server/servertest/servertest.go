// Package servertest runs the API in-process for client-side tests.
package servertest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/config"
	"github.com/pagecraft-dev/pagecraft/internal/server"
	"github.com/pagecraft-dev/pagecraft/internal/store/storetest"
)

// Enqueuer records tasks instead of sending them to Redis
type Enqueuer struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
}

func (e *Enqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Tasks = append(e.Tasks, task)
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

// Config returns settings suited to tests: no rate limiting to speak of, a small recent
// list and social sync in development mode
func Config() *config.Config {
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
		Social: config.SocialConfig{
			// No Google to ask; fresh social accounts are taken at their word
			TrustUnverified: true,
		},
		Maintenance: config.MaintenanceConfig{
			Schedule:    "0 * * * *",
			RecentLimit: 5,
		},
	}
}

// Start serves a fresh API backed by a temporary SQLite database.
// The returned URL is the API base, ending in /api.
func Start(t testing.TB, opts ...server.Option) (apiURL string, enqueuer *Enqueuer) {
	t.Helper()

	enqueuer = &Enqueuer{}
	opts = append([]server.Option{
		server.WithDB(storetest.NewDB(t)),
		server.WithEnqueuer(enqueuer),
	}, opts...)

	srv, err := server.New(Config(), zerolog.Nop(), "test", opts...)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts.URL + "/api", enqueuer
}
