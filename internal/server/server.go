// Package server exposes profile retrieval over HTTP. Routes:
//
//	GET /health                  liveness probe
//	GET /instagram/{username}    retrieve a profile
//
// Successful responses wrap the profile in a "data" envelope; failures
// carry a "detail" message. When live retrieval is exhausted the most
// recent stored snapshot is served instead, flagged is_cached.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"igprofile/internal/fetchwork"
	"igprofile/pkg/config"
	errs "igprofile/pkg/errors"
	"igprofile/pkg/instagram"
	"igprofile/pkg/logger"
	"igprofile/pkg/storage"
)

// Snapshots is the slice of the storage layer the server needs
type Snapshots interface {
	Save(ctx context.Context, profile *instagram.Profile) error
	Latest(ctx context.Context, username string) (*instagram.Profile, error)
}

// Images saves a profile picture and returns its local path
type Images interface {
	Save(ctx context.Context, username, pictureURL string) (string, error)
}

// Server wires the router, the worker pool and the snapshot store
type Server struct {
	cfg       config.ServerConfig
	pool      *fetchwork.Pool
	snapshots Snapshots
	images    Images
	logger    logger.Logger
	router    chi.Router
}

// New creates a server. snapshots is required; images may be nil to
// skip picture downloads.
func New(cfg config.ServerConfig, pool *fetchwork.Pool, snapshots Snapshots, images Images, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		cfg:       cfg,
		pool:      pool,
		snapshots: snapshots,
		images:    images,
		logger:    log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/instagram/{username}", s.handleProfile)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or testing
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("http server listening", map[string]interface{}{
			"addr": s.cfg.Addr,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.InfoWithFields("request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		})
	})
}

// requireAPIKey rejects requests without the configured key. With no
// key configured the check is a no-op.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthKey != "" {
			got := r.Header.Get(s.cfg.AuthHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AuthKey)) != 1 {
				writeDetail(w, http.StatusUnauthorized, "Invalid or missing API key.")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"queue":  s.pool.QueueSize(),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := instagram.SanitizeUsername(chi.URLParam(r, "username"))
	if !instagram.IsValidUsername(username) {
		writeDetail(w, http.StatusNotFound, "Instagram profile '"+username+"' not found.")
		return
	}

	profile, err := s.pool.Fetch(r.Context(), username)
	if err != nil {
		s.handleFetchError(w, r, username, err)
		return
	}

	s.persist(r.Context(), profile)
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": profile})
}

// handleFetchError maps retrieval failures to responses. Exhaustion
// falls back to the newest stored snapshot before reporting an error.
func (s *Server) handleFetchError(w http.ResponseWriter, r *http.Request, username string, err error) {
	if errs.IsRuntime(err) {
		cached, cacheErr := s.snapshots.Latest(r.Context(), username)
		if cacheErr == nil {
			s.logger.InfoWithFields("serving cached snapshot", map[string]interface{}{
				"username":   username,
				"scraped_at": cached.ScrapedAt,
			})
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": cached})
			return
		}
		if !errors.Is(cacheErr, storage.ErrNoSnapshot) {
			s.logger.ErrorWithFields("snapshot lookup failed", map[string]interface{}{
				"username": username,
				"error":    cacheErr.Error(),
			})
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	var domainErr *errs.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Type {
		case errs.TypeNotFound:
			writeDetail(w, http.StatusNotFound, domainErr.Message)
		case errs.TypeRateLimited:
			writeDetail(w, http.StatusTooManyRequests, domainErr.Message)
		case errs.TypeTimeout:
			writeDetail(w, http.StatusGatewayTimeout, domainErr.Message)
		default:
			writeDetail(w, http.StatusBadGateway, domainErr.Message)
		}
		return
	}

	writeDetail(w, http.StatusInternalServerError, "Internal server error.")
}

// persist saves the snapshot and, best effort, the picture
func (s *Server) persist(ctx context.Context, profile *instagram.Profile) {
	if s.images != nil && profile.ProfilePictureURL != "" {
		if path, err := s.images.Save(ctx, profile.Username, profile.ProfilePictureURL); err == nil {
			profile.ProfileImagePath = path
		} else {
			s.logger.WarnWithFields("profile picture download failed", map[string]interface{}{
				"username": profile.Username,
				"error":    err.Error(),
			})
		}
	}

	if err := s.snapshots.Save(ctx, profile); err != nil {
		s.logger.ErrorWithFields("snapshot save failed", map[string]interface{}{
			"username": profile.Username,
			"error":    err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
