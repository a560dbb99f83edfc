package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session holds the cookie triple an authenticated retrieval needs
type Session struct {
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	DSUserID  string    `json:"ds_user_id,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// CookieMap renders the session as the cookie bag the strategy chain
// consumes. A nil session produces an empty bag, which is still valid
// for anonymous retrieval.
func (s *Session) CookieMap() map[string]string {
	cookies := make(map[string]string)
	if s == nil {
		return cookies
	}
	if s.SessionID != "" {
		cookies["sessionid"] = s.SessionID
	}
	if s.CSRFToken != "" {
		cookies["csrftoken"] = s.CSRFToken
	}
	if s.DSUserID != "" {
		cookies["ds_user_id"] = s.DSUserID
	}
	return cookies
}

// SessionStore is the interface for persisting login sessions
type SessionStore interface {
	// Store saves a session for its account
	Store(session *Session) error

	// Retrieve gets the session for a specific username
	Retrieve(username string) (*Session, error)

	// List returns all stored sessions
	List() ([]*Session, error)

	// Delete removes the session for a specific username
	Delete(username string) error

	// Exists checks if a session exists for a username
	Exists(username string) bool
}

// Manager layers session stores with fallback: system keychain first,
// encrypted file second, plain cookie file and environment variables
// last.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a manager with every backend available on this
// system.
func NewManager(cookieFile string) (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	if cookieFile != "" {
		stores = append(stores, NewFileStore(cookieFile))
	}
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a session using the first backend that accepts it
func (m *Manager) Store(session *Session) error {
	if session.Username == "" {
		return errors.New("username is required")
	}
	if session.SessionID == "" {
		return errors.New("session ID is required")
	}

	session.SavedAt = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets the session from the first backend that has it
func (m *Manager) Retrieve(username string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(username); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session not found for user: %s", username)
}

// RetrieveDefault gets any available session, preferring environment
// credentials for non-interactive deployments.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}

	return nil, ErrSessionNotFound
}

// List returns all stored sessions across backends, newest copy winning
// per username.
func (m *Manager) List() ([]*Session, error) {
	byUser := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := byUser[session.Username]; !ok || session.SavedAt.After(existing.SavedAt) {
				byUser[session.Username] = session
			}
		}
	}

	var result []*Session
	for _, session := range byUser {
		result = append(result, session)
	}

	return result, nil
}

// Delete removes a session from every backend that has it
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("session not found for user: %s", username)
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
		configDir = filepath.Join(home, "Library", "Application Support", "igprofile")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igprofile")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igprofile")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igprofile")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize creates a copy of the session with sensitive values masked
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}

	return &Session{
		Username:  session.Username,
		SessionID: maskString(session.SessionID),
		CSRFToken: maskString(session.CSRFToken),
		DSUserID:  session.DSUserID,
		SavedAt:   session.SavedAt,
	}
}

// maskString masks all but the first 4 and last 4 characters
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
