package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create a config file interactively",
	Long: `Create a picshed config file interactively.

You will be prompted for the server port, database backend, storage
backend, and auth provider. The result is written as YAML to the path
given by --config (default: ./config.yaml).`,
	RunE: runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVar(&configureOutput, "output", "config.yaml", "path to write the config file")
	rootCmd.AddCommand(configureCmd)
}

// fileConfig mirrors the config package's layout with yaml tags so the
// generated file round-trips through config.Load.
type fileConfig struct {
	Env    string `yaml:"env"`
	Server struct {
		Port          int    `yaml:"port"`
		SessionSecret string `yaml:"session_secret"`
	} `yaml:"server"`
	Database struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Type    string `yaml:"type"`
		Path    string `yaml:"path,omitempty"`
		BaseURL string `yaml:"base_url,omitempty"`
		S3      struct {
			Bucket string `yaml:"bucket,omitempty"`
			Region string `yaml:"region,omitempty"`
		} `yaml:"s3,omitempty"`
	} `yaml:"storage"`
	Auth struct {
		Provider   string `yaml:"provider"`
		TokensFile string `yaml:"tokens_file,omitempty"`
		Endpoint   string `yaml:"endpoint,omitempty"`
	} `yaml:"auth"`
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configureOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("'%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	var cfg fileConfig
	cfg.Env = "dev"

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "8080",
		Validate: func(input string) error {
			p, convErr := strconv.Atoi(input)
			if convErr != nil || p < 1 || p > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	secret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generate session secret: %w", err)
	}
	cfg.Server.SessionSecret = secret

	dbSelect := promptui.Select{
		Label: "Database backend",
		Items: []string{"sqlite", "postgres"},
	}
	_, dbType, err := dbSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Database.Type = dbType

	dsnDefault := "picshed.db"
	if dbType == "postgres" {
		dsnDefault = "postgres://localhost:5432/picshed"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database DSN",
		Default: dsnDefault,
	}
	if cfg.Database.DSN, err = dsnPrompt.Run(); err != nil {
		return handlePromptError(err)
	}

	storageSelect := promptui.Select{
		Label: "Storage backend",
		Items: []string{"filesystem", "s3"},
	}
	_, storageType, err := storageSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Storage.Type = storageType

	switch storageType {
	case "filesystem":
		pathPrompt := promptui.Prompt{
			Label:   "Storage directory",
			Default: "./data",
		}
		if cfg.Storage.Path, err = pathPrompt.Run(); err != nil {
			return handlePromptError(err)
		}
		cfg.Storage.BaseURL = fmt.Sprintf("http://localhost:%d/media", cfg.Server.Port)

	case "s3":
		bucketPrompt := promptui.Prompt{
			Label: "S3 bucket",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("bucket is required")
				}
				return nil
			},
		}
		if cfg.Storage.S3.Bucket, err = bucketPrompt.Run(); err != nil {
			return handlePromptError(err)
		}

		regionPrompt := promptui.Prompt{
			Label:   "S3 region",
			Default: "us-east-1",
		}
		if cfg.Storage.S3.Region, err = regionPrompt.Run(); err != nil {
			return handlePromptError(err)
		}
	}

	authSelect := promptui.Select{
		Label: "Auth provider",
		Items: []string{"static", "file", "http"},
	}
	_, provider, err := authSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Auth.Provider = provider

	switch provider {
	case "file":
		tokensPrompt := promptui.Prompt{
			Label:   "Tokens file",
			Default: "tokens.yaml",
		}
		if cfg.Auth.TokensFile, err = tokensPrompt.Run(); err != nil {
			return handlePromptError(err)
		}

	case "http":
		endpointPrompt := promptui.Prompt{
			Label: "Verify endpoint URL",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("endpoint URL is required")
				}
				return nil
			},
		}
		if cfg.Auth.Endpoint, err = endpointPrompt.Run(); err != nil {
			return handlePromptError(err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configureOutput, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s.\n", configureOutput)
	if provider == "static" {
		fmt.Println("Add tokens under auth.tokens (token: owner_id) before starting the server.")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
