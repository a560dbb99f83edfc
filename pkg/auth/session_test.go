package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieMap(t *testing.T) {
	session := &Session{
		Username:  "someone",
		SessionID: "sess123",
		CSRFToken: "csrf456",
		DSUserID:  "789",
	}

	cookies := session.CookieMap()
	assert.Equal(t, map[string]string{
		"sessionid": "sess123",
		"csrftoken": "csrf456",
		"ds_user_id": "789",
	}, cookies)
}

func TestCookieMapOmitsEmptyValues(t *testing.T) {
	session := &Session{Username: "someone", SessionID: "sess123"}
	cookies := session.CookieMap()

	assert.Equal(t, map[string]string{"sessionid": "sess123"}, cookies)
}

func TestCookieMapNilSession(t *testing.T) {
	var session *Session
	assert.Empty(t, session.CookieMap())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewFileStore(path)

	session := &Session{
		Username:  "someone",
		SessionID: "sess123",
		CSRFToken: "csrf456",
		SavedAt:   time.Now(),
	}
	require.NoError(t, store.Store(session))

	loaded, err := store.Retrieve("someone")
	require.NoError(t, err)
	assert.Equal(t, "sess123", loaded.SessionID)
	assert.Equal(t, "csrf456", loaded.CSRFToken)

	assert.True(t, store.Exists("someone"))
	assert.False(t, store.Exists("nobody"))
}

func TestFileStoreMissingSession(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cookies.json"))

	_, err := store.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewFileStore(path)

	require.NoError(t, store.Store(&Session{Username: "a", SessionID: "s1"}))
	require.NoError(t, store.Store(&Session{Username: "b", SessionID: "s2"}))

	require.NoError(t, store.Delete("a"))
	assert.False(t, store.Exists("a"))
	assert.True(t, store.Exists("b"))

	assert.ErrorIs(t, store.Delete("a"), ErrSessionNotFound)
}

func TestFileStoreList(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cookies.json"))

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	require.NoError(t, store.Store(&Session{Username: "a", SessionID: "s1"}))
	require.NoError(t, store.Store(&Session{Username: "b", SessionID: "s2"}))

	sessions, err = store.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGPROFILE_SESSION_ID", "envsess")
	t.Setenv("IGPROFILE_CSRF_TOKEN", "envcsrf")

	store := NewEnvironmentStore()
	session, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", session.Username)
	assert.Equal(t, "envsess", session.SessionID)
	assert.Equal(t, "envcsrf", session.CSRFToken)

	assert.ErrorIs(t, store.Store(session), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("default"), ErrStoreUnavailable)
}

func TestEnvironmentStoreMissing(t *testing.T) {
	t.Setenv("IGPROFILE_SESSION_ID", "")

	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, store.Exists(""))
}

func TestSanitizeMasksSecrets(t *testing.T) {
	session := &Session{
		Username:  "someone",
		SessionID: "verylongsessionidvalue",
		CSRFToken: "short",
	}

	masked := Sanitize(session)
	assert.Equal(t, "very...alue", masked.SessionID)
	assert.Equal(t, "********", masked.CSRFToken)
	assert.Equal(t, "someone", masked.Username)

	// Original untouched
	assert.Equal(t, "verylongsessionidvalue", session.SessionID)

	assert.Nil(t, Sanitize(nil))
}
