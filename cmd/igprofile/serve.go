package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igprofile/internal/fetchwork"
	"igprofile/internal/server"
	"igprofile/pkg/logger"
	"igprofile/pkg/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the profile retrieval HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DatabasePath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	images, err := storage.NewImageSaver(cfg.Storage.ImagesDir, cfg.Scraper.RequestTimeout, log)
	if err != nil {
		return err
	}

	s := buildScraper(ctx, cfg, log)

	pool := fetchwork.NewPool(cfg.Server.Workers, s, log)
	pool.Start()
	defer pool.Stop()

	srv := server.New(cfg.Server, pool, store, images, log)
	return srv.ListenAndServe(ctx)
}
