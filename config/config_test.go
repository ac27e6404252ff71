package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := NewLoader("", filepath.Join(dir, "missing.env")).Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Name)
	assert.Equal(t, "test-key", cfg.Model.APIKey)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Zero(t, cfg.Model.MaxTokens)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "sheets", cfg.Store.Backend)
	assert.Equal(t, "Soyeon_Memory", cfg.Store.MemoryName)
	assert.Equal(t, 20, cfg.Memory.Limit)
	assert.Equal(t, "Brian", cfg.Speakers.User)
	assert.Equal(t, "Soyeon", cfg.Speakers.Assistant)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("SOYEON_MEMORY_LIMIT", "7")

	path := writeFile(t, dir, "soyeon.yaml", `
store:
  backend: memory
memory:
  limit: 5
speakers:
  user: Alice
`)

	cfg, err := NewLoader(path, filepath.Join(dir, "missing.env")).Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 7, cfg.Memory.Limit)
	assert.Equal(t, "Alice", cfg.Speakers.User)
	assert.Equal(t, "Soyeon", cfg.Speakers.Assistant)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	unsetEnv(t, "GOOGLE_API_KEY", "SOYEON_MODEL_API_KEY")

	envFile := writeFile(t, dir, ".env", "GOOGLE_API_KEY=from-dotenv\n")

	cfg, err := NewLoader("", envFile).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Model.APIKey)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GOOGLE_API_KEY", "from-env")

	envFile := writeFile(t, dir, ".env", "GOOGLE_API_KEY=from-dotenv\n")

	cfg, err := NewLoader("", envFile).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model.APIKey)
}

func TestLoad_SecretsFileFallback(t *testing.T) {
	dir := t.TempDir()
	unsetEnv(t, "GOOGLE_API_KEY", "SOYEON_MODEL_API_KEY")

	secrets := writeFile(t, dir, "secrets.toml", `GOOGLE_API_KEY = "from-secrets"`+"\n")
	t.Setenv("SOYEON_MODEL_SECRETS_FILE", secrets)

	cfg, err := NewLoader("", filepath.Join(dir, "missing.env")).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-secrets", cfg.Model.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Model:  ModelConfig{Provider: "gemini", APIKey: "k"},
			Store:  StoreConfig{Backend: "sheets"},
			Memory: MemoryConfig{Limit: 20},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.Model.APIKey = "" }, wantErr: ErrMissingAPIKey},
		{name: "bad provider", mutate: func(c *Config) { c.Model.Provider = "palm" }},
		{name: "bad backend", mutate: func(c *Config) { c.Store.Backend = "csv" }},
		{name: "negative limit", mutate: func(c *Config) { c.Memory.Limit = -1 }},
		{name: "negative idle timeout", mutate: func(c *Config) { c.Session.IdleTimeout = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
