// Package config reads the signer's runtime settings from the environment and
// an optional dotenv file. The result is built once and never mutated.
package config

import (
	"io/fs"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment variable names.
const (
	EnvPort       = "PORT"
	EnvHost       = "HOST"
	EnvSigningKey = "BUNNY_SIGNING_KEY"
	EnvBaseURL    = "BUNNY_BASE_URL"
	EnvLogLevel   = "LOG_LEVEL"
)

const (
	defaultPort     = 3000
	defaultHost     = "0.0.0.0"
	defaultLogLevel = "info"

	// DefaultEnvFile is read when present, like dotenv's config().
	DefaultEnvFile = ".env"
)

// Config represents runtime configuration for the service.
type Config struct {
	Port       int
	Host       string
	SigningKey string
	BaseURL    string
	LogLevel   string
}

// Address is the listen address for the HTTP server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SigningConfigured reports whether both signing secrets are present. A
// config without them is still valid: the health endpoint keeps working and
// /sign answers with a configuration error.
func (c *Config) SigningConfigured() bool {
	return c.SigningKey != "" && c.BaseURL != ""
}

// Load reads configuration from envFile (skipped when empty or missing) and
// the process environment, which takes precedence.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(EnvPort, strconv.Itoa(defaultPort))
	v.SetDefault(EnvHost, defaultHost)
	v.SetDefault(EnvLogLevel, defaultLogLevel)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, errors.Wrapf(err, "read env file %s", envFile)
		}
	}

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString(EnvPort)))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", EnvPort)
	}
	if port <= 0 || port > 65535 {
		return nil, errors.Errorf("%s out of range: %d", EnvPort, port)
	}

	return &Config{
		Port:       port,
		Host:       v.GetString(EnvHost),
		SigningKey: v.GetString(EnvSigningKey),
		BaseURL:    v.GetString(EnvBaseURL),
		LogLevel:   strings.ToLower(v.GetString(EnvLogLevel)),
	}, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
