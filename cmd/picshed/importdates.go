package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/config"
	"github.com/picshed/picshed/database"
)

var importDatesCmd = &cobra.Command{
	Use:   "import-dates",
	Short: "Rewrite legacy upload timestamps to the canonical format",
	Long: `Scan the metadata store for records whose created_at value is not in
the canonical RFC 3339 format, parse them against the known legacy layouts,
and rewrite them in place.

Run this once after importing records from an older deployment. Records
that cannot be parsed are reported and left untouched.`,
	RunE: runImportDates,
}

func init() {
	rootCmd.AddCommand(importDatesCmd)
}

func runImportDates(cmd *cobra.Command, args []string) error {
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

	slog.Info("scanning records for legacy timestamps")

	updated, err := picshed.ImportLegacyDates(ctx, repo)
	if err != nil {
		return fmt.Errorf("import dates: %w", err)
	}

	slog.Info("import complete", "records_updated", updated)
	return nil
}
