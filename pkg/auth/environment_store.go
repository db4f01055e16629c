package auth

import (
	"os"
	"time"
)

// ClientIDEnv names the environment variable holding the client id
const ClientIDEnv = "MALHARVEST_CLIENT_ID"

// EnvironmentStore implements a read-only CredentialStore over the environment
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Name() string {
	return "environment"
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the client id from the environment for any profile
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	clientID := os.Getenv(ClientIDEnv)
	if clientID == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile:      profile,
		ClientID:     clientID,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}
