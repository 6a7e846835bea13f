package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore()
	if err := store.SetAPIKey("sk-test-12345"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "sk-test-12345" {
		t.Errorf("key = %q, want sk-test-12345", key)
	}
}

func TestKeyringStoreNotFound(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("clearing keyring: %v", err)
	}

	store := NewKeyringStore()
	_, err := store.APIKey()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("error = %v, want ErrNoAPIKey", err)
	}
}

func TestKeyringStoreRejectsEmptyKey(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore()
	if err := store.SetAPIKey("   "); err == nil {
		t.Error("expected error for blank key")
	}
}

func TestKeyringStoreTrimsWhitespace(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore()
	if err := store.SetAPIKey("  sk-padded  "); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "sk-padded" {
		t.Errorf("key = %q, want trimmed value", key)
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-from-env")

	store := NewEnvStore(EnvAPIKey)
	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "sk-from-env" {
		t.Errorf("key = %q, want sk-from-env", key)
	}

	if err := store.SetAPIKey("anything"); err == nil {
		t.Error("expected error storing to env store")
	}
}

func TestEnvStoreEmpty(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	store := NewEnvStore(EnvAPIKey)
	if _, err := store.APIKey(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("error = %v, want ErrNoAPIKey", err)
	}
}

func TestDefaultStorePrefersEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-from-env")

	store := DefaultStore()
	if _, ok := store.(*EnvStore); !ok {
		t.Errorf("store = %T, want *EnvStore when env var set", store)
	}
}

func TestDefaultStoreFallsBackToKeyring(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	store := DefaultStore()
	if _, ok := store.(*KeyringStore); !ok {
		t.Errorf("store = %T, want *KeyringStore when env var unset", store)
	}
}
