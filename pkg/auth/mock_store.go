package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	mu          sync.RWMutex
	credentials map[string]*Credential

	// FailStore makes Store return ErrStoreUnavailable, simulating an
	// unavailable backend.
	FailStore bool
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{credentials: make(map[string]*Credential)}
}

// Store saves a credential in memory
func (m *MockStore) Store(credential *Credential) error {
	if m.FailStore {
		return ErrStoreUnavailable
	}
	if credential == nil || credential.Label == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := *credential
	m.credentials[credential.Label] = &c
	return nil
}

// Retrieve gets a credential from memory
func (m *MockStore) Retrieve(label string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	credential, exists := m.credentials[label]
	if !exists {
		return nil, ErrCredentialsNotFound
	}
	c := *credential
	return &c, nil
}

// List returns all stored credentials
func (m *MockStore) List() ([]*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Credential
	for _, credential := range m.credentials {
		c := *credential
		result = append(result, &c)
	}
	return result, nil
}

// Delete removes a credential from memory
func (m *MockStore) Delete(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.credentials[label]; !exists {
		return ErrCredentialsNotFound
	}
	delete(m.credentials, label)
	return nil
}

// Exists checks if a credential exists in memory
func (m *MockStore) Exists(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.credentials[label]
	return exists
}
