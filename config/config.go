package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/database"
	picshedhttp "github.com/picshed/picshed/http"
	"github.com/picshed/picshed/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for picshed.
type Config struct {
	Env      string                 `mapstructure:"env"`
	Server   ServerConfig           `mapstructure:"server"`
	Service  ServiceConfig          `mapstructure:"service"`
	Database database.Config        `mapstructure:"database"`
	Storage  StorageConfig          `mapstructure:"storage"`
	Auth     AuthConfig             `mapstructure:"auth"`
	CORS     picshedhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
	SessionSecret string `mapstructure:"session_secret" validate:"required"`
	SessionMaxAge int    `mapstructure:"session_max_age" validate:"min=1"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"`
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3"`
	// Path is the storage directory for the filesystem backend.
	Path string `mapstructure:"path"`
	// BaseURL is the public prefix under which filesystem blobs are served.
	BaseURL string         `mapstructure:"base_url"`
	S3      s3store.Config `mapstructure:"s3"`
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	// Provider selects the verifier: "static" (inline tokens), "file"
	// (YAML token file), or "http" (remote identity provider).
	Provider string `mapstructure:"provider" validate:"required,oneof=static file http"`
	// Endpoint is the remote provider's verify URL (http provider).
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Provider http"`
	// TimeoutSeconds bounds a remote verification round trip.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"min=0"`
	// TokensFile is the YAML token file path (file provider).
	TokensFile string `mapstructure:"tokens_file" validate:"required_if=Provider file"`
	// Tokens maps token -> owner id (static provider).
	Tokens map[string]string `mapstructure:"tokens"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-path": "storage.path",
	"port":         "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", picshed.DefaultMaxUploadBytes)
	// Empty on purpose: the key must exist for env binding, and validation
	// rejects a missing secret.
	v.SetDefault("server.session_secret", "")
	v.SetDefault("server.session_max_age", 86400)

	v.SetDefault("service.cleanup_timeout", 30) // seconds

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "picshed.db")
	v.SetDefault("database.table", "picshed_images")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.base_url", "http://localhost:8080/media")

	v.SetDefault("auth.provider", "static")
	v.SetDefault("auth.endpoint", "")
	v.SetDefault("auth.tokens_file", "")
	v.SetDefault("auth.timeout_seconds", 10)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	}

	// 3. Environment variables
	v.SetEnvPrefix("PICSHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Flags
	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
