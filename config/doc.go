// Package config loads and validates picshed configuration from defaults,
// config files, PICSHED_* environment variables, and CLI flags, in rising
// order of precedence. The loaded Config is built once at process start and
// passed down explicitly; nothing reads configuration ambiently.
package config
