// Package session tracks the identity-provider session of the CLI user and
// reconciles it with the backend's cookie session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
)

// Status of an identity-provider session
type Status int

const (
	Unauthenticated Status = iota
	Loading
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Identity is what the identity provider tells us about the user
type Identity struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
	Provider string `json:"provider"`
	IDToken  string `json:"id_token,omitempty"`
}

// Session is an identity-provider session. The application only reads it.
type Session struct {
	Status       Status    `json:"status"`
	Identity     Identity  `json:"identity"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

// Expired reports whether the provider token has run out
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(now)
}

// Store keeps the session for one API URL in a TokenStore
type Store struct {
	tokens auth.TokenStore
	key    string
}

// NewStore creates a session store for apiURL
func NewStore(tokens auth.TokenStore, apiURL string) *Store {
	return &Store{tokens: tokens, key: auth.SessionKey(apiURL)}
}

// Load returns the stored session, or an unauthenticated one when nothing is stored
func (s *Store) Load() (Session, error) {
	raw, err := s.tokens.LoadToken(s.key)
	if errors.Is(err, auth.ErrNotFound) {
		return Session{Status: Unauthenticated}, nil
	}
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode stored session: %w", err)
	}
	return sess, nil
}

// Save stores sess
func (s *Store) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.tokens.SaveToken(s.key, string(data))
}

// Clear forgets the stored session
func (s *Store) Clear() error {
	return s.tokens.DeleteToken(s.key)
}
