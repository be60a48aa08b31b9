// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var relayEnvVars = []string{
	"RELAY_API_KEY", "RELAY_MODEL", "RELAY_UPSTREAM_URL", "RELAY_PROVIDER",
	"RELAY_HOST", "RELAY_PORT", "RELAY_HISTORY_BACKEND", "RELAY_SERVER_URL",
	"RELAY_USER_ID",
}

// isolate points HOME at a temp dir and blanks every RELAY_* variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range relayEnvVars {
		t.Setenv(name, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "https://api.siliconflow.cn/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "THUDM/GLM-4-9B-0414", cfg.Upstream.Model)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, 5, cfg.History.Window)
	assert.Equal(t, 10*time.Second, cfg.Client.HealthTimeout())
	assert.Equal(t, 60*time.Second, cfg.Client.ChatTimeout())
	assert.Empty(t, cfg.Upstream.APIKey, "no key may ship in defaults")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_ReadsHomeConfig(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".relaychat", "config.toml"), `
[server]
port = 9100

[history]
backend = "sqlite"
window = 3
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, 3, cfg.History.Window)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
}

func TestLoadFromPath_FillsDefaults(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "relay.toml")
	writeFile(t, path, `
[upstream]
model = "other/model"
temperature = 1.2
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "other/model", cfg.Upstream.Model)
	assert.InDelta(t, 1.2, cfg.Upstream.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.Upstream.MaxTokens)
	assert.Equal(t, "http://localhost:8001", cfg.Client.ServerURL)
}

func TestLoadFromPath_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := LoadFromPath(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[server\nport = ")
	_, err = LoadFromPath(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	writeFile(t, invalid, "[server]\nport = 70000\n")
	_, err = LoadFromPath(invalid)
	require.Error(t, err)
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "server.port", verrs[0].Field)
}

func TestLoadTOML_TightensPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	isolate(t)
	path := filepath.Join(t.TempDir(), "relay.toml")
	writeFile(t, path, "[server]\nport = 8002\n")

	require.NoError(t, LoadTOML(Default(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Server.Port = 8111
	cfg.Client.UserID = "alice"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# relaychat configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 8111, loaded.Server.Port)
	assert.Equal(t, "alice", loaded.Client.UserID)
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, err := WriteDefault("", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".relaychat", "config.toml"), path)

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, loaded.Server.Port)
	assert.Equal(t, Default().Client.UserID, loaded.Client.UserID)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestWriteDefault_KeepsExistingFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[client]\nuser_id = \"bob\"\n")

	_, err := WriteDefault(path, false)
	require.ErrorIs(t, err, ErrConfigExists)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bob")

	_, err = WriteDefault(path, true)
	require.NoError(t, err)
	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Client.UserID, loaded.Client.UserID)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "RELAY_API_KEY=sk-from-dotenv\nRELAY_PORT=9001\n")
	t.Cleanup(func() {
		os.Unsetenv("RELAY_API_KEY")
		os.Unsetenv("RELAY_PORT")
	})
	// godotenv does not override variables that are already set.
	os.Unsetenv("RELAY_API_KEY")
	os.Unsetenv("RELAY_PORT")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-from-dotenv", cfg.Upstream.APIKey)
	assert.Equal(t, 9001, cfg.Server.Port)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RELAY_API_KEY", "sk-test")
	t.Setenv("RELAY_MODEL", "m")
	t.Setenv("RELAY_UPSTREAM_URL", "http://127.0.0.1:9999/v1")
	t.Setenv("RELAY_PROVIDER", "CANNED")
	t.Setenv("RELAY_HOST", "127.0.0.1")
	t.Setenv("RELAY_PORT", "8100")
	t.Setenv("RELAY_HISTORY_BACKEND", "sqlite")
	t.Setenv("RELAY_SERVER_URL", "http://relay:8100")
	t.Setenv("RELAY_USER_ID", "bob")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "sk-test", cfg.Upstream.APIKey)
	assert.Equal(t, "m", cfg.Upstream.Model)
	assert.Equal(t, "http://127.0.0.1:9999/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, ProviderCanned, cfg.Upstream.Provider)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "http://relay:8100", cfg.Client.ServerURL)
	assert.Equal(t, "bob", cfg.Client.UserID)
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("RELAY_PORT", "eighty")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 8001, cfg.Server.Port)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown provider", func(c *Config) { c.Upstream.Provider = "openai" }, "upstream.provider"},
		{"bad base url", func(c *Config) { c.Upstream.BaseURL = "ftp://x" }, "upstream.base_url"},
		{"timeout", func(c *Config) { c.Upstream.TimeoutSecs = 0 }, "upstream.timeout_secs"},
		{"temperature", func(c *Config) { c.Upstream.Temperature = 3 }, "upstream.temperature"},
		{"top_p", func(c *Config) { c.Upstream.TopP = 1.5 }, "upstream.top_p"},
		{"backend", func(c *Config) { c.History.Backend = "redis" }, "history.backend"},
		{"window", func(c *Config) { c.History.Window = 0 }, "history.window"},
		{"server url", func(c *Config) { c.Client.ServerURL = "localhost:8001" }, "client.server_url"},
		{"user id", func(c *Config) { c.Client.UserID = "  " }, "client.user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateErrors_Empty(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

func TestEffectiveProvider(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ProviderCanned, cfg.EffectiveProvider(), "no key falls back to canned")

	cfg.Upstream.APIKey = "sk-x"
	assert.Equal(t, ProviderSiliconFlow, cfg.EffectiveProvider())

	cfg.Upstream.Provider = ProviderCanned
	assert.Equal(t, ProviderCanned, cfg.EffectiveProvider())
}

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Upstream.APIKey = "sk-very-secret"

	s := cfg.String()
	assert.NotContains(t, s, "sk-very-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-very-secret", cfg.Upstream.APIKey, "String must not mutate the receiver")
}

func TestClone_DeepCopiesOrigins(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Server.CORSOrigins[0] = "http://changed"
	assert.Equal(t, "*", cfg.Server.CORSOrigins[0])
}
