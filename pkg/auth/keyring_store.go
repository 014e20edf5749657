package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "chscraper"
	keyringPrefix  = "apikey_"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed store, probing the keychain
// first so headless systems fall through to the encrypted file store.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a credential to the system keychain
func (k *KeyringStore) Store(credential *Credential) error {
	if credential == nil || credential.Label == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+credential.Label, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets a credential from the system keychain
func (k *KeyringStore) Retrieve(label string) (*Credential, error) {
	if label == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+label)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var credential Credential
	if err := json.Unmarshal([]byte(data), &credential); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &credential, nil
}

// List returns all stored credentials from the keychain.
// go-keyring cannot enumerate keys, so this returns empty; the manager
// falls back to the other stores for listing.
func (k *KeyringStore) List() ([]*Credential, error) {
	return []*Credential{}, nil
}

// Delete removes a credential from the system keychain
func (k *KeyringStore) Delete(label string) error {
	if label == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+label); err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(label string) bool {
	if label == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+label)
	return err == nil
}
