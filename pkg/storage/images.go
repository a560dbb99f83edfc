package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"igprofile/pkg/logger"
)

// ImageSaver downloads profile pictures to disk. When the platform's
// signed CDN URL rejects the request, two public avatar mirrors are
// tried before giving up.
type ImageSaver struct {
	dir        string
	httpClient *http.Client
	logger     logger.Logger
}

// NewImageSaver creates a saver writing into dir
func NewImageSaver(dir string, timeout time.Duration, log logger.Logger) (*ImageSaver, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return &ImageSaver{
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}, nil
}

// fallbackURLs builds the avatar-mirror URLs for a handle
func fallbackURLs(username string) []string {
	return []string{
		fmt.Sprintf("https://unavatar.io/instagram/%s", username),
		fmt.Sprintf("https://api.dicebear.com/7.x/initials/png?seed=%s", username),
	}
}

// Save downloads the profile picture for a handle, returning the path
// of the written file. pictureURL may be empty, in which case only the
// mirrors are tried.
func (s *ImageSaver) Save(ctx context.Context, username, pictureURL string) (string, error) {
	candidates := make([]string, 0, 3)
	if pictureURL != "" {
		candidates = append(candidates, pictureURL)
	}
	candidates = append(candidates, fallbackURLs(username)...)

	var lastErr error
	for _, rawurl := range candidates {
		path, err := s.fetch(ctx, username, rawurl)
		if err == nil {
			return path, nil
		}
		lastErr = err
		s.logger.DebugWithFields("image source failed", map[string]interface{}{
			"username": username,
			"url":      rawurl,
			"error":    err.Error(),
		})
	}

	return "", fmt.Errorf("all image sources failed for %s: %w", username, lastErr)
}

func (s *ImageSaver) fetch(ctx context.Context, username, rawurl string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ext := extensionFor(resp.Header.Get("Content-Type"), rawurl)
	filename := fmt.Sprintf("%s_%d%s", username, time.Now().Unix(), ext)
	path := filepath.Join(s.dir, filename)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// extensionFor picks a file extension from the content type, falling
// back to the URL path, then .jpg.
func extensionFor(contentType, rawurl string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	}

	if ext := strings.ToLower(filepath.Ext(strings.SplitN(rawurl, "?", 2)[0])); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}
