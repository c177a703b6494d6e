package client

import (
	"context"
	"fmt"
	"net/http"
)

const (
	// RefreshPath rotates the credential cookies
	RefreshPath = "/auth/refresh"

	// DefaultSignOutRedirect is where a terminated session is sent
	DefaultSignOutRedirect = "/login"
)

// credentialPaths mint credentials themselves; a 401 there means bad input, not an expired session
var credentialPaths = map[string]bool{
	RefreshPath:         true,
	"/auth/login":       true,
	"/auth/signup":      true,
	"/auth/social-sync": true,
}

// SessionTerminator ends the local session after a refresh failed
type SessionTerminator interface {
	Terminate(ctx context.Context, redirect string)
}

// TerminatorFunc adapts a function to SessionTerminator
type TerminatorFunc func(ctx context.Context, redirect string)

func (f TerminatorFunc) Terminate(ctx context.Context, redirect string) {
	f(ctx, redirect)
}

// RefreshError is returned when a 401 could not be recovered by refreshing.
// Its chain holds the refresh failure first and the original 401 second.
type RefreshError struct {
	Refresh  error
	Original error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session refresh failed: %v", e.Refresh)
}

func (e *RefreshError) Unwrap() []error {
	return []error{e.Refresh, e.Original}
}

// intercept sends req once. A first 401 triggers one refresh and one replay;
// anything else is returned as-is.
func (c *Client) intercept(ctx context.Context, req Request) (*Response, error) {
	seen := c.refreshGeneration()

	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if req.Retried() || credentialPaths[req.Path] || !IsUnauthorized(err) {
		return nil, err
	}

	terminate, refreshErr := c.refreshSession(ctx, seen)
	if refreshErr != nil {
		if terminate {
			c.terminate(ctx)
		}
		return nil, &RefreshError{Refresh: refreshErr, Original: err}
	}

	return c.send(ctx, req.asRetry())
}

func (c *Client) refreshGeneration() uint64 {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshGen
}

// refreshSession calls the refresh endpoint unless a concurrent caller already
// did so since seen. Only the caller that performed a failed refresh gets
// terminate == true.
func (c *Client) refreshSession(ctx context.Context, seen uint64) (terminate bool, err error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.refreshGen != seen {
		return false, c.refreshErr
	}

	_, err = c.send(ctx, Request{Method: http.MethodPost, Path: RefreshPath})
	c.refreshGen++
	c.refreshErr = err

	if err != nil {
		c.logger.Warn().Err(err).Msg("Session refresh failed")
		return true, err
	}
	c.logger.Debug().Msg("Session refreshed")
	return false, nil
}

func (c *Client) terminate(ctx context.Context) {
	if c.terminator == nil {
		return
	}
	c.terminator.Terminate(ctx, c.signOutRedirect)
}
