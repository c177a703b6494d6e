package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var (
	ErrIdentityMismatch = errors.New("identity token does not match claimed email")
	ErrNoAudience       = errors.New("google client id is not configured")
)

// Identity is what an identity provider vouches for
type Identity struct {
	Email   string
	Name    string
	Picture string
	Subject string
}

// GoogleTokenInfo represents the response from Google's tokeninfo endpoint
type GoogleTokenInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified string `json:"email_verified"` // Google returns this as string "true" or "false"
	Audience      string `json:"aud"`
	Sub           string `json:"sub"`
}

// GoogleVerifier checks Google ID tokens against the tokeninfo endpoint
type GoogleVerifier struct {
	ClientID   string // expected audience; empty rejects every token
	Endpoint   string
	HTTPClient *http.Client
}

// NewGoogleVerifier creates a verifier using Google's public tokeninfo endpoint
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		ClientID:   clientID,
		Endpoint:   googleTokenInfoURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify validates idToken and returns the identity it carries
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if v.ClientID == "" {
		return nil, ErrNoAudience
	}
	if idToken == "" {
		return nil, fmt.Errorf("missing id token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.Endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var info GoogleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode Google token info: %w", err)
	}

	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("google email is not verified")
	}
	if info.Audience != v.ClientID {
		return nil, fmt.Errorf("google token issued for another client")
	}

	return &Identity{
		Email:   strings.ToLower(info.Email),
		Name:    info.Name,
		Picture: info.Picture,
		Subject: info.Sub,
	}, nil
}
