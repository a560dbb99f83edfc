package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements SessionStore using environment variables.
// Read-only; meant for containerized deployments where the session is
// injected rather than interactively created.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based session store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve gets a session from environment variables
func (e *EnvironmentStore) Retrieve(username string) (*Session, error) {
	sessionID := os.Getenv("IGPROFILE_SESSION_ID")
	csrfToken := os.Getenv("IGPROFILE_CSRF_TOKEN")
	dsUserID := os.Getenv("IGPROFILE_DS_USER_ID")

	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	// The environment carries no username; fall back to a fixed one
	if username == "" {
		username = "default"
	}

	return &Session{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		DSUserID:  dsUserID,
		SavedAt:   time.Now(),
	}, nil
}

// List returns a single session if environment variables are set
func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv("IGPROFILE_SESSION_ID") != ""
}
