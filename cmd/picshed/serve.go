package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/config"
	"github.com/picshed/picshed/database"
	"github.com/picshed/picshed/filesystem"
	picshedhttp "github.com/picshed/picshed/http"
	"github.com/picshed/picshed/identity"
	"github.com/picshed/picshed/s3store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the picshed HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, dbCleanup, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbCleanup()
	slog.Info("connected to database", "type", cfg.Database.Type)

	blobs, media, storageCleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storageCleanup()

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}

	service, err := picshed.NewGalleryService(repo, blobs, picshed.ServiceConfig{
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handlerConfig := picshedhttp.HandlerConfig{
		Verifier:       verifier,
		SessionSecret:  cfg.Server.SessionSecret,
		SessionMaxAge:  cfg.Server.SessionMaxAge,
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		Media:          media,
		CORS:           cfg.CORS,
	}

	handler := picshedhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Type)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// buildStorage constructs the configured blob store. For the filesystem
// backend it also returns a media handler so the stored blobs are reachable
// under their public URLs; S3 objects are served by the bucket itself.
func buildStorage(ctx context.Context, cfg *config.Config) (picshed.BlobStore, http.Handler, func(), error) {
	switch cfg.Storage.Type {
	case "filesystem":
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		store := filesystem.NewStore(root, cfg.Storage.BaseURL)
		media := http.StripPrefix("/media/", http.FileServerFS(root.FS()))
		cleanup := func() { _ = root.Close() }
		return store, media, cleanup, nil

	case "s3":
		store, err := s3store.New(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create s3 store: %w", err)
		}
		return store, nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func buildVerifier(cfg *config.Config) (picshed.TokenVerifier, error) {
	switch cfg.Auth.Provider {
	case "static":
		return identity.NewStaticVerifier(cfg.Auth.Tokens), nil
	case "file":
		return identity.LoadFile(cfg.Auth.TokensFile)
	case "http":
		return identity.NewHTTPVerifier(cfg.Auth.Endpoint, time.Duration(cfg.Auth.TimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", cfg.Auth.Provider)
	}
}
