package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore over the
// COMPANIES_HOUSE_API_KEY environment variable. Read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(credential *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from the environment. The environment
// holds a single unlabeled key, so any requested label maps onto it.
func (e *EnvironmentStore) Retrieve(label string) (*Credential, error) {
	apiKey := os.Getenv("COMPANIES_HOUSE_API_KEY")
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	if label == "" {
		label = DefaultLabel
	}

	return &Credential{
		Label:        label,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

// List returns the environment credential when the variable is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	credential, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{credential}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment credential is set
func (e *EnvironmentStore) Exists(label string) bool {
	return os.Getenv("COMPANIES_HOUSE_API_KEY") != ""
}
