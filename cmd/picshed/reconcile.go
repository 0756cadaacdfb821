package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/config"
	"github.com/picshed/picshed/database"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove orphaned blobs from storage",
	Long: `Scan blob storage for objects that have no metadata record and delete them.

Orphans accumulate when an upload writes its blob but the metadata insert
fails and the compensating delete cannot complete (for example, the process
crashes between the two writes). Run this periodically to reclaim space.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	blobs, _, storageCleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storageCleanup()

	service, err := picshed.NewGalleryService(repo, blobs, picshed.ServiceConfig{
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	slog.Info("scanning storage for orphaned blobs", "storage", cfg.Storage.Type)

	removed, err := service.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	slog.Info("reconcile complete", "blobs_removed", removed)
	return nil
}
