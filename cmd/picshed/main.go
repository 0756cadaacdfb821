package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/picshed/picshed/config"
)

var version = "dev"

var configFiles []string

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "picshed",
	Short:   "Multi-user photo gallery server",
	Long: `Picshed is a multi-user photo gallery server. Users sign in with an
opaque access token, upload JPEG images to blob storage, and browse a
per-user gallery backed by a metadata store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// configure bootstraps the config file, so it must not require one.
		if cmd.Name() == "configure" {
			return nil
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "config file path(s) (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: PICSHED_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: picshed.db, env: PICSHED_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory path (default: ./data, env: PICSHED_STORAGE_PATH)")
}

func main() {
	if len(configFiles) == 0 {
		if _, err := os.Stat("config.yaml"); err == nil {
			configFiles = []string{"config.yaml"}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
