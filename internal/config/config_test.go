// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithSQLiteBackend(t *testing.T) {
	t.Setenv("DOCULENS_STORE", StoreSQLite)
	t.Setenv("DOCULENS_DATA", t.TempDir())

	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, filepath.Join(cfg.DataDir, "doculens.sqlite"), cfg.SQLitePath)
	assert.Equal(t, "gemini-1.5-flash-002", cfg.GeminiModel)
	assert.Equal(t, "https://api.llamaparse.com", cfg.LlamaParseBaseURL)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_PostgRESTRequiresCredentials(t *testing.T) {
	t.Setenv("DOCULENS_STORE", StorePostgREST)
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")

	_, err := NewLoader("", "test").Load()
	require.ErrorIs(t, err, ErrMissingSupabaseCredentials)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  listenAddr: ":9999"
  rateLimitRPM: 100
store:
  backend: sqlite
classifier:
  model: gemini-from-file
workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DOCULENS_LISTEN", ":7070")
	t.Setenv("DOCULENS_DATA", dir)

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	// ENV wins over file
	assert.Equal(t, ":7070", cfg.ListenAddr)
	// File wins over defaults
	assert.Equal(t, 100, cfg.RateLimitRPM)
	assert.Equal(t, "gemini-from-file", cfg.GeminiModel)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
}

func TestLoad_UnknownFileKeysRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus: true\n"), 0o600))

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.StoreBackend = StoreSQLite
	base.SQLitePath = "/tmp/doculens.sqlite"

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid sqlite", mutate: func(c *AppConfig) {}, wantErr: false},
		{name: "unknown backend", mutate: func(c *AppConfig) { c.StoreBackend = "mysql" }, wantErr: true},
		{name: "empty listen addr", mutate: func(c *AppConfig) { c.ListenAddr = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *AppConfig) { c.Workers = 0 }, wantErr: true},
		{name: "zero upload limit", mutate: func(c *AppConfig) { c.MaxUploadBytes = 0 }, wantErr: true},
		{name: "tracing without endpoint", mutate: func(c *AppConfig) { c.TracingEnabled = true }, wantErr: true},
		{name: "tracing with bad exporter", mutate: func(c *AppConfig) {
			c.TracingEnabled = true
			c.TracingEndpoint = "localhost:4318"
			c.TracingExporter = "udp"
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDuration_PlainSeconds(t *testing.T) {
	t.Setenv("DOCULENS_PARSE_TIMEOUT", "90")
	assert.Equal(t, 90*time.Second, ParseDuration("DOCULENS_PARSE_TIMEOUT", time.Minute))

	t.Setenv("DOCULENS_PARSE_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, ParseDuration("DOCULENS_PARSE_TIMEOUT", time.Minute))

	t.Setenv("DOCULENS_PARSE_TIMEOUT", "junk")
	assert.Equal(t, time.Minute, ParseDuration("DOCULENS_PARSE_TIMEOUT", time.Minute))
}

func TestParseStringSlice(t *testing.T) {
	t.Setenv("DOCULENS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	got := ParseStringSlice("DOCULENS_ALLOWED_ORIGINS", nil)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got)
}

func TestHolder_ReloadSwapsOnSuccessOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o600))

	t.Setenv("DOCULENS_STORE", StoreSQLite)
	t.Setenv("DOCULENS_DATA", dir)

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Workers)

	holder := NewHolder(cfg, loader, path)
	var reloaded, failed int
	holder.OnReload(func(AppConfig) { reloaded++ })
	holder.OnReloadError(func(err error) {
		require.Error(t, err)
		failed++
	})

	// Good update swaps
	require.NoError(t, os.WriteFile(path, []byte("workers: 8\n"), 0o600))
	require.NoError(t, holder.Reload(t.Context()))
	assert.Equal(t, 8, holder.Current().Workers)
	assert.Equal(t, 1, reloaded)
	assert.Equal(t, 0, failed)

	// Broken update keeps previous snapshot and fires the failure hook
	require.NoError(t, os.WriteFile(path, []byte("workers: [\n"), 0o600))
	require.Error(t, holder.Reload(t.Context()))
	assert.Equal(t, 8, holder.Current().Workers)
	assert.Equal(t, 1, reloaded)
	assert.Equal(t, 1, failed)
}
