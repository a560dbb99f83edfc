package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists sessions as a plain JSON cookie file. It is the
// interoperability backend: the file can be seeded by hand or by other
// tooling, keyed by username.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a cookie-file backed session store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Store saves a session into the cookie file
func (f *FileStore) Store(session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session == nil || session.Username == "" {
		return ErrInvalidSession
	}

	sessions, err := f.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load cookie file: %w", err)
	}
	if sessions == nil {
		sessions = make(map[string]Session)
	}

	sessions[session.Username] = *session
	return f.save(sessions)
}

// Retrieve gets a session from the cookie file
func (f *FileStore) Retrieve(username string) (*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidSession
	}

	sessions, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load cookie file: %w", err)
	}

	session, exists := sessions[username]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// List returns all sessions in the cookie file
func (f *FileStore) List() ([]*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sessions, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("failed to load cookie file: %w", err)
	}

	var result []*Session
	for _, session := range sessions {
		s := session
		result = append(result, &s)
	}
	return result, nil
}

// Delete removes a session from the cookie file
func (f *FileStore) Delete(username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if username == "" {
		return ErrInvalidSession
	}

	sessions, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to load cookie file: %w", err)
	}

	if _, exists := sessions[username]; !exists {
		return ErrSessionNotFound
	}
	delete(sessions, username)

	if len(sessions) == 0 {
		return os.Remove(f.path)
	}
	return f.save(sessions)
}

// Exists checks if a session exists in the cookie file
func (f *FileStore) Exists(username string) bool {
	session, err := f.Retrieve(username)
	return err == nil && session != nil
}

func (f *FileStore) load() (map[string]Session, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var sessions map[string]Session
	if err := json.Unmarshal(content, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file: %w", err)
	}
	return sessions, nil
}

func (f *FileStore) save(sessions map[string]Session) error {
	content, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return os.Rename(tempFile, f.path)
}
