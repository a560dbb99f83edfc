package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igprofile/pkg/auth"
	"igprofile/pkg/config"
	"igprofile/pkg/logger"
	"igprofile/pkg/proxypool"
	"igprofile/pkg/scraper"
	"igprofile/pkg/storage"
)

var (
	fetchNoSave    bool
	fetchSaveImage bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Retrieve one profile and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchNoSave, "no-save", false, "skip snapshot persistence")
	fetchCmd.Flags().BoolVar(&fetchSaveImage, "save-image", false, "download the profile picture")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := buildScraper(ctx, cfg, log)

	profile, err := s.FetchProfile(ctx, args[0])
	if err != nil {
		return err
	}

	if fetchSaveImage {
		saver, err := storage.NewImageSaver(cfg.Storage.ImagesDir, cfg.Scraper.RequestTimeout, log)
		if err != nil {
			return err
		}
		if path, err := saver.Save(ctx, profile.Username, profile.ProfilePictureURL); err == nil {
			profile.ProfileImagePath = path
		} else {
			log.WithError(err).Warn("profile picture download failed")
		}
	}

	if !fetchNoSave {
		store, err := storage.Open(cfg.Storage.DatabasePath, log)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, profile); err != nil {
			log.WithError(err).Warn("snapshot save failed")
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(profile)
}

// buildScraper wires the proxy pool, session cookies and orchestrator
// from configuration. Shared by the fetch and serve commands.
func buildScraper(ctx context.Context, cfg *config.Config, log logger.Logger) *scraper.Scraper {
	pool := proxypool.New(cfg.Proxy.Pool, proxypool.NewNordSource(), log)

	cookies := sessionCookies(ctx, cfg, log)
	return scraper.New(cfg, pool, cookies, log)
}

// sessionCookies resolves the cookie bag: explicit config values win,
// then any stored session. An empty bag means anonymous retrieval.
func sessionCookies(ctx context.Context, cfg *config.Config, log logger.Logger) map[string]string {
	if cfg.Instagram.SessionID != "" {
		session := &auth.Session{
			Username:  cfg.Instagram.Username,
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			DSUserID:  cfg.Instagram.DSUserID,
		}
		return session.CookieMap()
	}

	manager, err := auth.NewManager(cfg.Instagram.CookieFile)
	if err != nil {
		log.WithError(err).Warn("session stores unavailable, running anonymous")
		return map[string]string{}
	}

	session, err := auth.EnsureSession(ctx, manager,
		cfg.Instagram.Username, cfg.Instagram.Password, cfg.Instagram.AppID, log)
	if err != nil {
		log.Info("no session available, running anonymous")
		return map[string]string{}
	}

	log.InfoWithFields("using stored session", map[string]interface{}{
		"username": session.Username,
	})
	return session.CookieMap()
}
