package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageSaverWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	saver, err := NewImageSaver(dir, 5*time.Second, nil)
	require.NoError(t, err)

	path, err := saver.Save(context.Background(), "nasa", server.URL+"/pic.jpg")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "nasa_"), "filename starts with the handle: %s", base)
	assert.True(t, strings.HasSuffix(base, ".jpg"), "extension follows content type: %s", base)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))
}

func TestImageSaverRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	saver, err := NewImageSaver(t.TempDir(), 5*time.Second, nil)
	require.NoError(t, err)

	_, err = saver.fetch(context.Background(), "nasa", server.URL+"/pic.jpg")
	assert.Error(t, err)
}
