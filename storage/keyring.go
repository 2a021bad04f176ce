package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// refreshTokenKey is not a credential itself, only the entry name inside the
// OS keyring.
const refreshTokenKey = "orbit-refresh-token"

// DefaultKeyringService is the keyring service name used unless the config
// overrides it (tests and dev setups namespace it).
const DefaultKeyringService = "orbit-desktop"

// CredentialStore persists the refresh token in the OS keyring. Only the
// refresh token is stored: access tokens are short-lived and re-acquired via
// refresh, and single-value entries stay within keyring size limits on
// Windows.
type CredentialStore struct {
	service string
}

// NewCredentialStore creates a CredentialStore under the given keyring
// service name; "" means DefaultKeyringService.
func NewCredentialStore(service string) *CredentialStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &CredentialStore{service: service}
}

// SaveRefreshToken writes the refresh token to the keyring. An empty token
// removes the entry instead.
func (s *CredentialStore) SaveRefreshToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return s.Clear()
	}
	if err := keyring.Set(s.service, refreshTokenKey, token); err != nil {
		return fmt.Errorf("store refresh token in keyring: %w", err)
	}
	return nil
}

// LoadRefreshToken returns the stored refresh token, or "" when none is
// stored.
func (s *CredentialStore) LoadRefreshToken() (string, error) {
	token, err := keyring.Get(s.service, refreshTokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read refresh token from keyring: %w", err)
	}
	return token, nil
}

// Clear removes the stored refresh token. Idempotent.
func (s *CredentialStore) Clear() error {
	err := keyring.Delete(s.service, refreshTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("remove refresh token from keyring: %w", err)
	}
	return nil
}
