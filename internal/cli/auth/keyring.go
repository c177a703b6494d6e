// Package auth keeps CLI credentials in the OS keychain.
package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "pagecraft-cli"
)

// ErrNotFound is returned when nothing is stored under a key
var ErrNotFound = errors.New("no stored credentials")

// CookiesKey is where the backend cookie jar for an API URL is kept
func CookiesKey(apiURL string) string {
	return fmt.Sprintf("cookies-%s", apiURL)
}

// SessionKey is where the identity-provider session for an API URL is kept
func SessionKey(apiURL string) string {
	return fmt.Sprintf("session-%s", apiURL)
}

// SaveToken persists a secret in the OS keychain/credential manager
func SaveToken(key, value string) error {
	if err := keyring.Set(service, key, value); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// LoadToken retrieves a secret from the OS keychain/credential manager
func LoadToken(key string) (string, error) {
	value, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	return value, nil
}

// DeleteToken removes a secret from the OS keychain/credential manager
func DeleteToken(key string) error {
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
