package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "batsim-portal-cli"
)

// getKeyringKey returns a unique key for storing JWT tokens per portal
func getKeyringKey(portalURL string) string {
	return fmt.Sprintf("jwt-%s", portalURL)
}

// SaveToken persists the JWT token securely in the OS keychain/credential manager
func SaveToken(portalURL, token string) error {
	key := getKeyringKey(portalURL)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the JWT token from the OS keychain/credential manager
func LoadToken(portalURL string) (string, error) {
	key := getKeyringKey(portalURL)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the JWT token from the OS keychain/credential manager
func DeleteToken(portalURL string) error {
	key := getKeyringKey(portalURL)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// ErrNotAuthenticated is returned when no token is stored for a portal
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'batsim login' first")
