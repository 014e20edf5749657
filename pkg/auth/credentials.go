// Package auth stores the Companies House API key securely, preferring
// the system keychain and falling back to an encrypted file, with
// environment variables as a read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/validate"
)

// DefaultLabel names the credential used when none is specified
const DefaultLabel = "default"

// Credential is one stored API key. Labels let a user keep several keys
// (e.g. a live key and a sandbox key) side by side.
type Credential struct {
	Label        string    `json:"label"`
	APIKey       string    `json:"api_key"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving API keys
type CredentialStore interface {
	// Store saves a credential under its label
	Store(credential *Credential) error

	// Retrieve gets the credential for a label
	Retrieve(label string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a label
	Delete(label string) error

	// Exists checks whether a credential exists for a label
	Exists(label string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends:
// system keychain when usable, then the encrypted file store, then the
// environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store validates the key format and saves it using the first store
// that accepts it.
func (m *Manager) Store(credential *Credential) error {
	if credential.Label == "" {
		credential.Label = DefaultLabel
	}
	if err := validate.APIKey(credential.APIKey); err != nil {
		return err
	}

	credential.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(credential); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(label string) (*Credential, error) {
	if label == "" {
		label = DefaultLabel
	}
	for _, store := range m.stores {
		if credential, err := store.Retrieve(label); err == nil && credential != nil {
			return credential, nil
		}
	}
	return nil, fmt.Errorf("no credential found for label: %s", label)
}

// List returns all stored credentials across every store, keeping the
// most recently modified version of each label.
func (m *Manager) List() ([]*Credential, error) {
	byLabel := make(map[string]*Credential)

	for _, store := range m.stores {
		credentials, err := store.List()
		if err != nil {
			continue
		}
		for _, credential := range credentials {
			existing, ok := byLabel[credential.Label]
			if !ok || credential.LastModified.After(existing.LastModified) {
				byLabel[credential.Label] = credential
			}
		}
	}

	var result []*Credential
	for _, credential := range byLabel {
		result = append(result, credential)
	}
	return result, nil
}

// Delete removes the credential from every store that has it
func (m *Manager) Delete(label string) error {
	if label == "" {
		label = DefaultLabel
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(label); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("no credential found for label: %s", label)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "chscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "chscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "chscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "chscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// MaskKey masks all but the first 4 and last 4 characters of a key for
// display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
