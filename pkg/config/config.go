// Package config loads kdag settings from a TOML file and the environment.
//
// The file lives at $XDG_CONFIG_HOME/kdag/config.toml (falling back to
// ~/.config/kdag/config.toml). A missing file is not an error: [Load]
// returns [Default] with environment overrides applied.
//
//	[api]
//	url = "http://localhost:8000"
//	timeout = "10s"
//	retries = 3
//
//	[layout]
//	epsilon = 1.0
//
//	[server]
//	addr = "127.0.0.1:7300"
//
//	[snapshot]
//	backend = "sqlite"
//	dsn = "/tmp/kdag.db"
//	ttl = "720h"
//
// KDAG_API_URL, KDAG_SERVER_ADDR and KDAG_SNAPSHOT_BACKEND override the
// matching file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/kdag/pkg/api"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/httputil"
	"github.com/matzehuels/kdag/pkg/layout"
	"github.com/matzehuels/kdag/pkg/snapshot"
)

const (
	appName  = "kdag"
	fileName = "config.toml"

	// DefaultServerAddr is where the bridge server listens by default.
	DefaultServerAddr = "127.0.0.1:7300"
)

// Environment variables consulted by [Load].
const (
	EnvAPIURL          = "KDAG_API_URL"
	EnvServerAddr      = "KDAG_SERVER_ADDR"
	EnvSnapshotBackend = "KDAG_SNAPSHOT_BACKEND"
)

// Config is the full settings tree.
type Config struct {
	API      API             `toml:"api"`
	Layout   Layout          `toml:"layout"`
	Server   Server          `toml:"server"`
	Snapshot snapshot.Config `toml:"snapshot"`
}

// API configures the backend client.
type API struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
	Retries int      `toml:"retries"`
}

// Layout configures the layout store.
type Layout struct {
	Epsilon float64 `toml:"epsilon"`
}

// Server configures the bridge server.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		API: API{
			URL:     api.DefaultBaseURL,
			Timeout: Duration{httputil.DefaultTimeout},
			Retries: httputil.DefaultPolicy.Attempts,
		},
		Layout:   Layout{Epsilon: layout.DefaultEpsilon},
		Server:   Server{Addr: DefaultServerAddr},
		Snapshot: snapshot.Config{Backend: snapshot.BackendFile},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads path, or the default location when path is empty, and applies
// environment overrides. Values missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes TOML text on top of [Default]. Environment overrides are
// not applied.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapshotBackend)); v != "" {
		c.Snapshot.Backend = v
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.API.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "api.url cannot be empty")
	}
	if c.API.Timeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "api.timeout cannot be negative")
	}
	if c.API.Retries < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "api.retries must be at least 1, got %d", c.API.Retries)
	}
	if c.Layout.Epsilon < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout.epsilon cannot be negative")
	}
	switch c.Snapshot.Backend {
	case "", snapshot.BackendNone, snapshot.BackendFile, snapshot.BackendSQLite, snapshot.BackendRedis, snapshot.BackendMongo:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown snapshot backend %q", c.Snapshot.Backend)
	}
	return nil
}

// RetryPolicy returns the gateway retry policy described by the [api] section.
func (c Config) RetryPolicy() httputil.Policy {
	p := httputil.DefaultPolicy
	p.Attempts = c.API.Retries
	return p
}

// Encode renders the config as TOML.
func (c Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
