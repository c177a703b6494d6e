package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrNoRefreshToken is returned when an expired session cannot be renewed
var ErrNoRefreshToken = errors.New("session has no refresh token")

// GoogleProvider signs the user in with Google using the OAuth device flow,
// which works from a terminal without a redirect listener
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a provider for an OAuth client of type "TVs and Limited Input devices"
func NewGoogleProvider(clientID, clientSecret string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: GoogleUserInfoURL,
	}
}

// DeviceCode describes what the user must do to approve the sign-in
type DeviceCode struct {
	UserCode        string
	VerificationURL string
}

// SignIn runs the device flow. prompt is called once with the code the user
// must enter; SignIn then blocks until the user approves, denies or ctx ends.
func (p *GoogleProvider) SignIn(ctx context.Context, prompt func(DeviceCode)) (Session, error) {
	da, err := p.config.DeviceAuth(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("failed to start device sign-in: %w", err)
	}

	verification := da.VerificationURIComplete
	if verification == "" {
		verification = da.VerificationURI
	}
	prompt(DeviceCode{UserCode: da.UserCode, VerificationURL: verification})

	token, err := p.config.DeviceAccessToken(ctx, da)
	if err != nil {
		return Session{}, fmt.Errorf("device sign-in failed: %w", err)
	}
	return p.sessionFromToken(ctx, token)
}

// Refresh renews an expired session with its refresh token
func (p *GoogleProvider) Refresh(ctx context.Context, sess Session) (Session, error) {
	if sess.RefreshToken == "" {
		return Session{}, ErrNoRefreshToken
	}

	token, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: sess.RefreshToken}).Token()
	if err != nil {
		return Session{}, fmt.Errorf("failed to refresh session: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = sess.RefreshToken
	}
	return p.sessionFromToken(ctx, token)
}

func (p *GoogleProvider) sessionFromToken(ctx context.Context, token *oauth2.Token) (Session, error) {
	idToken, _ := token.Extra("id_token").(string)

	resp, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return Session{}, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, fmt.Errorf("user info request failed: %d %s", resp.StatusCode, body)
	}

	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Session{}, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.Email == "" {
		return Session{}, errors.New("identity provider returned no email")
	}

	return Session{
		Status: Authenticated,
		Identity: Identity{
			Email:    info.Email,
			Name:     info.Name,
			Image:    info.Picture,
			Provider: "google",
			IDToken:  idToken,
		},
		ExpiresAt:    token.Expiry,
		RefreshToken: token.RefreshToken,
	}, nil
}
