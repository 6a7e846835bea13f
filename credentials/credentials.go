// Package credentials provides secure storage for the analysis-endpoint API key.
//
// The key is kept in the system keyring (macOS Keychain, Windows Credential
// Manager, Linux Secret Service). The ROUNDTABLE_API_KEY environment variable
// takes precedence for CI and testing environments.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "roundtable-cli"
	// keyringUser is the user/account name used in the system keyring.
	keyringUser = "analysis-api-key"
	// EnvAPIKey is the environment variable consulted before the keyring.
	EnvAPIKey = "ROUNDTABLE_API_KEY"
)

// ErrKeyringUnavailable indicates the system keyring is not available.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// ErrNoAPIKey indicates no API key has been stored yet.
var ErrNoAPIKey = errors.New("no API key configured")

// Store provides access to the analysis-endpoint API key.
type Store interface {
	// APIKey returns the stored API key.
	APIKey() (string, error)

	// SetAPIKey stores a new API key, replacing any existing one.
	SetAPIKey(key string) error

	// Description returns a human-readable description of the storage mechanism.
	Description() string
}

// KeyringStore keeps the API key in the system keyring.
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore creates a new KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// APIKey retrieves the API key from the system keyring.
func (s *KeyringStore) APIKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// SetAPIKey stores the API key in the system keyring.
func (s *KeyringStore) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Description returns a description of this store.
func (s *KeyringStore) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// EnvStore reads the API key from an environment variable.
// This is primarily for testing and CI environments.
type EnvStore struct {
	envVar string
}

// NewEnvStore creates a new EnvStore that reads the key from the given env var.
func NewEnvStore(envVar string) *EnvStore {
	return &EnvStore{envVar: envVar}
}

// APIKey returns the key from the environment variable.
func (s *EnvStore) APIKey() (string, error) {
	key := os.Getenv(s.envVar)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// SetAPIKey is not supported for environment-based keys.
func (s *EnvStore) SetAPIKey(string) error {
	return errors.New("cannot store key in environment variable")
}

// Description returns a description of this store.
func (s *EnvStore) Description() string {
	return fmt.Sprintf("Environment variable (%s)", s.envVar)
}

// DefaultStore returns the appropriate store for the current environment.
// Priority:
// 1. ROUNDTABLE_API_KEY environment variable (for CI/testing)
// 2. System keyring
func DefaultStore() Store {
	if os.Getenv(EnvAPIKey) != "" {
		return NewEnvStore(EnvAPIKey)
	}
	return NewKeyringStore()
}
