// Package resources wraps API calls for commands. Every call resolves to a
// Result; expected failures never escape as errors.
package resources

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
)

// Result is what a hook call resolves to
type Result[T any] struct {
	Success bool
	Message string
	Data    T
}

// state is the loading/error bookkeeping each hook owns
type state struct {
	mu      sync.Mutex
	pending int
	err     error
	logger  zerolog.Logger
}

// Loading reports whether a call is in progress
func (s *state) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// Err returns the error of the last finished call, or nil if it succeeded
func (s *state) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *state) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
}

func (s *state) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	s.err = err
}

// run performs fn with the loading flag raised and turns its outcome into a Result
func run[T any](ctx context.Context, s *state, op string, success string, fn func(context.Context) (T, error)) Result[T] {
	s.begin()
	data, err := fn(ctx)
	s.end(err)

	if err != nil {
		s.logger.Debug().Err(err).Str("op", op).Msg("Request failed")
		var zero T
		return Result[T]{Success: false, Message: client.Message(err), Data: zero}
	}
	return Result[T]{Success: true, Message: success, Data: data}
}
