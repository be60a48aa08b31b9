// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/relaychat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relaychat configuration.
type Config struct {
	// Relay HTTP server
	Server ServerConfig `toml:"server"`

	// Upstream model provider
	Upstream UpstreamConfig `toml:"upstream"`

	// Conversation history storage
	History HistoryConfig `toml:"history"`

	// Chat client
	Client ClientConfig `toml:"client"`
}

// ServerConfig contains relay server settings.
type ServerConfig struct {
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	ReadTimeoutSecs  int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs int      `toml:"write_timeout_secs"`
	CORSOrigins      []string `toml:"cors_origins"`
}

// UpstreamConfig contains the model provider settings.
type UpstreamConfig struct {
	// Provider is "siliconflow" (OpenAI-compatible HTTP API) or "canned"
	// (offline keyword replies).
	Provider     string  `toml:"provider"`
	BaseURL      string  `toml:"base_url"`
	Model        string  `toml:"model"`
	APIKey       string  `toml:"api_key"`
	TimeoutSecs  int     `toml:"timeout_secs"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float64 `toml:"temperature"`
	TopP         float64 `toml:"top_p"`
	SystemPrompt string  `toml:"system_prompt"`
}

// HistoryConfig contains history store settings.
type HistoryConfig struct {
	// Backend is "memory" or "sqlite".
	Backend   string `toml:"backend"`
	SQLiteDSN string `toml:"sqlite_dsn"`

	// Window is the number of past turns sent upstream with each message.
	Window int `toml:"window"`
}

// ClientConfig contains chat client settings.
type ClientConfig struct {
	ServerURL         string `toml:"server_url"`
	UserID            string `toml:"user_id"`
	HealthTimeoutSecs int    `toml:"health_timeout_secs"`
	ChatTimeoutSecs   int    `toml:"chat_timeout_secs"`
	AssistantName     string `toml:"assistant_name"`
	IconPath          string `toml:"icon_path"`
	AvatarPath        string `toml:"avatar_path"`
}

// Provider names.
const (
	ProviderSiliconFlow = "siliconflow"
	ProviderCanned      = "canned"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8001,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
			CORSOrigins:      []string{"*"},
		},

		Upstream: UpstreamConfig{
			Provider:    ProviderSiliconFlow,
			BaseURL:     "https://api.siliconflow.cn/v1",
			Model:       "THUDM/GLM-4-9B-0414",
			TimeoutSecs: 30,
			MaxTokens:   2048,
			Temperature: 0.7,
			TopP:        0.9,
		},

		History: HistoryConfig{
			Backend:   "memory",
			SQLiteDSN: "file::memory:",
			Window:    5,
		},

		Client: ClientConfig{
			ServerURL:         "http://localhost:8001",
			UserID:            "default",
			HealthTimeoutSecs: 10,
			ChatTimeoutSecs:   60,
			AssistantName:     "Changzheng AI",
			IconPath:          "resources/icon.txt",
			AvatarPath:        "resources/avatar.txt",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the relaychat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".relaychat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600. The file may hold
// an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// named) into the process environment. Missing files are skipped and
// variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from ~/.relaychat/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg and fills anything left empty.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	// Server
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = defaults.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = defaults.Server.WriteTimeoutSecs
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}

	// Upstream
	if cfg.Upstream.Provider == "" {
		cfg.Upstream.Provider = defaults.Upstream.Provider
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = defaults.Upstream.BaseURL
	}
	if cfg.Upstream.Model == "" {
		cfg.Upstream.Model = defaults.Upstream.Model
	}
	if cfg.Upstream.TimeoutSecs == 0 {
		cfg.Upstream.TimeoutSecs = defaults.Upstream.TimeoutSecs
	}
	if cfg.Upstream.MaxTokens == 0 {
		cfg.Upstream.MaxTokens = defaults.Upstream.MaxTokens
	}
	if cfg.Upstream.Temperature == 0 {
		cfg.Upstream.Temperature = defaults.Upstream.Temperature
	}
	if cfg.Upstream.TopP == 0 {
		cfg.Upstream.TopP = defaults.Upstream.TopP
	}

	// History
	if cfg.History.Backend == "" {
		cfg.History.Backend = defaults.History.Backend
	}
	if cfg.History.SQLiteDSN == "" {
		cfg.History.SQLiteDSN = defaults.History.SQLiteDSN
	}
	if cfg.History.Window == 0 {
		cfg.History.Window = defaults.History.Window
	}

	// Client
	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = defaults.Client.ServerURL
	}
	if cfg.Client.UserID == "" {
		cfg.Client.UserID = defaults.Client.UserID
	}
	if cfg.Client.HealthTimeoutSecs == 0 {
		cfg.Client.HealthTimeoutSecs = defaults.Client.HealthTimeoutSecs
	}
	if cfg.Client.ChatTimeoutSecs == 0 {
		cfg.Client.ChatTimeoutSecs = defaults.Client.ChatTimeoutSecs
	}
	if cfg.Client.AssistantName == "" {
		cfg.Client.AssistantName = defaults.Client.AssistantName
	}
	if cfg.Client.IconPath == "" {
		cfg.Client.IconPath = defaults.Client.IconPath
	}
	if cfg.Client.AvatarPath == "" {
		cfg.Client.AvatarPath = defaults.Client.AvatarPath
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// ErrConfigExists is returned by WriteDefault when the target file exists
// and overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path, or to
// ConfigPathTOML when path is empty, and returns the path written.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		var err error
		if path, err = ConfigPathTOML(); err != nil {
			return "", err
		}
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	return path, SaveTOML(Default(), path)
}

// SaveTOML writes the configuration to path atomically with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# relaychat configuration file\n")
	buf.WriteString("# RELAY_* environment variables override these values\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port)})
	}
	if c.Server.ReadTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"server.read_timeout_secs", "must not be negative"})
	}
	if c.Server.WriteTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"server.write_timeout_secs", "must not be negative"})
	}

	// Upstream
	switch c.Upstream.Provider {
	case ProviderSiliconFlow, ProviderCanned:
	default:
		errs = append(errs, ValidationError{"upstream.provider", fmt.Sprintf("must be %q or %q, got %q", ProviderSiliconFlow, ProviderCanned, c.Upstream.Provider)})
	}
	if err := validateHTTPURL(c.Upstream.BaseURL); err != nil {
		errs = append(errs, ValidationError{"upstream.base_url", err.Error()})
	}
	if c.Upstream.TimeoutSecs < 1 || c.Upstream.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{"upstream.timeout_secs", fmt.Sprintf("must be between 1 and 600, got %d", c.Upstream.TimeoutSecs)})
	}
	if c.Upstream.MaxTokens < 1 {
		errs = append(errs, ValidationError{"upstream.max_tokens", "must be positive"})
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		errs = append(errs, ValidationError{"upstream.temperature", fmt.Sprintf("must be between 0 and 2, got %g", c.Upstream.Temperature)})
	}
	if c.Upstream.TopP <= 0 || c.Upstream.TopP > 1 {
		errs = append(errs, ValidationError{"upstream.top_p", fmt.Sprintf("must be in (0, 1], got %g", c.Upstream.TopP)})
	}

	// History
	switch c.History.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, ValidationError{"history.backend", fmt.Sprintf("must be \"memory\" or \"sqlite\", got %q", c.History.Backend)})
	}
	if c.History.Window < 1 {
		errs = append(errs, ValidationError{"history.window", "must be at least 1"})
	}

	// Client
	if err := validateHTTPURL(c.Client.ServerURL); err != nil {
		errs = append(errs, ValidationError{"client.server_url", err.Error()})
	}
	if strings.TrimSpace(c.Client.UserID) == "" {
		errs = append(errs, ValidationError{"client.user_id", "must not be empty"})
	}
	if c.Client.HealthTimeoutSecs < 1 {
		errs = append(errs, ValidationError{"client.health_timeout_secs", "must be positive"})
	}
	if c.Client.ChatTimeoutSecs < 1 {
		errs = append(errs, ValidationError{"client.chat_timeout_secs", "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateHTTPURL checks that raw is an absolute http(s) URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RELAY_API_KEY: overrides upstream.api_key
//   - RELAY_MODEL: overrides upstream.model
//   - RELAY_UPSTREAM_URL: overrides upstream.base_url
//   - RELAY_PROVIDER: overrides upstream.provider
//   - RELAY_HOST: overrides server.host
//   - RELAY_PORT: overrides server.port
//   - RELAY_HISTORY_BACKEND: overrides history.backend
//   - RELAY_SERVER_URL: overrides client.server_url
//   - RELAY_USER_ID: overrides client.user_id
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("RELAY_API_KEY"); key != "" {
		c.Upstream.APIKey = key
	}
	if model := os.Getenv("RELAY_MODEL"); model != "" {
		c.Upstream.Model = model
	}
	if u := os.Getenv("RELAY_UPSTREAM_URL"); u != "" {
		c.Upstream.BaseURL = u
	}
	if provider := os.Getenv("RELAY_PROVIDER"); provider != "" {
		c.Upstream.Provider = strings.ToLower(provider)
	}

	if host := os.Getenv("RELAY_HOST"); host != "" {
		c.Server.Host = host
	}
	// Non-numeric ports are ignored.
	if port := os.Getenv("RELAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if backend := os.Getenv("RELAY_HISTORY_BACKEND"); backend != "" {
		c.History.Backend = strings.ToLower(backend)
	}

	if u := os.Getenv("RELAY_SERVER_URL"); u != "" {
		c.Client.ServerURL = u
	}
	if user := os.Getenv("RELAY_USER_ID"); user != "" {
		c.Client.UserID = user
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// EffectiveProvider returns the provider the server will actually use. The
// HTTP provider without an API key degrades to canned replies.
func (c *Config) EffectiveProvider() string {
	if c.Upstream.Provider == ProviderSiliconFlow && strings.TrimSpace(c.Upstream.APIKey) == "" {
		return ProviderCanned
	}
	return c.Upstream.Provider
}

// Timeout returns the upstream request timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSecs) * time.Second
}

// HealthTimeout returns the client's health check timeout.
func (c ClientConfig) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSecs) * time.Second
}

// ChatTimeout returns the client's chat request timeout.
func (c ClientConfig) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutSecs) * time.Second
}

// ReadTimeout returns the server's HTTP read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the server's HTTP write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// String returns a TOML rendering of the config with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Upstream.APIKey != "" {
		safe.Upstream.APIKey = "[REDACTED]"
	}

	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(safe)
	return buf.String()
}
