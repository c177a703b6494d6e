package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
)

// Backend is the part of the API the bridge talks to
type Backend interface {
	Me(ctx context.Context) (*client.User, error)
	SocialSync(ctx context.Context, identity client.SocialIdentity) (*client.User, error)
}

// Outcome says what one observation did
type Outcome int

const (
	// Ignored: not a transition to authenticated
	Ignored Outcome = iota
	// InFlight: another reconciliation was running
	InFlight
	// AlreadyValid: the backend session was fine, nothing was synced
	AlreadyValid
	// Synced: the backend had no session and social sync created one
	Synced
	// SyncFailed: social sync was attempted and failed
	SyncFailed
	// ProbeFailed: the session probe failed with something other than 401
	ProbeFailed
)

func (o Outcome) String() string {
	switch o {
	case InFlight:
		return "in_flight"
	case AlreadyValid:
		return "already_valid"
	case Synced:
		return "synced"
	case SyncFailed:
		return "sync_failed"
	case ProbeFailed:
		return "probe_failed"
	default:
		return "ignored"
	}
}

// Bridge makes sure a signed-in identity-provider session has a backend
// cookie session too
type Bridge struct {
	backend Backend
	logger  zerolog.Logger

	inFlight atomic.Bool

	mu   sync.Mutex
	last Status
}

// NewBridge creates a bridge that has not seen any session yet
func NewBridge(backend Backend, logger zerolog.Logger) *Bridge {
	return &Bridge{backend: backend, logger: logger, last: Unauthenticated}
}

// Observe is called with every observed session. Only a transition into
// Authenticated does any work: the backend session is probed and, if the
// backend answers 401, social sync runs exactly once.
func (b *Bridge) Observe(ctx context.Context, sess Session) (Outcome, error) {
	if !b.transition(sess.Status) {
		return Ignored, nil
	}

	if !b.inFlight.CompareAndSwap(false, true) {
		return InFlight, nil
	}
	defer b.inFlight.Store(false)

	log := b.logger.With().Str("email", sess.Identity.Email).Logger()

	_, err := b.backend.Me(ctx)
	if err == nil {
		log.Debug().Msg("Backend session already valid")
		return AlreadyValid, nil
	}
	if !client.IsUnauthorized(err) {
		log.Warn().Err(err).Msg("Session probe failed")
		b.forget()
		return ProbeFailed, err
	}

	_, err = b.backend.SocialSync(ctx, client.SocialIdentity{
		Email:    sess.Identity.Email,
		Name:     sess.Identity.Name,
		Image:    sess.Identity.Image,
		Provider: sess.Identity.Provider,
		IDToken:  sess.Identity.IDToken,
	})
	if err != nil {
		log.Error().Err(err).Msg("Social sync failed")
		b.forget()
		return SyncFailed, err
	}

	log.Info().Msg("Backend session created from social sign-in")
	return Synced, nil
}

// transition records status and reports whether it is a change into Authenticated
func (b *Bridge) transition(status Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.last
	b.last = status
	return status == Authenticated && prev != Authenticated
}

// forget lets the next authenticated observation count as a transition again
func (b *Bridge) forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = Unauthenticated
}
