// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingSupabaseCredentials indicates the PostgREST backend was selected
// without the credentials it needs.
var ErrMissingSupabaseCredentials = errors.New("config: SUPABASE_URL and SUPABASE_KEY are required for the postgrest store backend")

// Validate checks the resolved configuration for fatal inconsistencies.
func Validate(cfg AppConfig) error {
	switch cfg.StoreBackend {
	case StorePostgREST:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return ErrMissingSupabaseCredentials
		}
		if _, err := url.Parse(cfg.SupabaseURL); err != nil {
			return fmt.Errorf("config: invalid SUPABASE_URL: %w", err)
		}
	case StoreSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return errors.New("config: sqlite store backend requires a database path")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q (supported: %s, %s)", cfg.StoreBackend, StorePostgREST, StoreSQLite)
	}

	if cfg.ListenAddr == "" {
		return errors.New("config: listen address must not be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("config: max upload size must be positive")
	}
	if cfg.Workers <= 0 {
		return errors.New("config: worker count must be positive")
	}
	if cfg.ParseTimeout <= 0 {
		return errors.New("config: parse timeout must be positive")
	}
	if cfg.TracingEnabled {
		if cfg.TracingEndpoint == "" {
			return errors.New("config: tracing enabled but no endpoint configured")
		}
		if cfg.TracingExporter != "grpc" && cfg.TracingExporter != "http" {
			return fmt.Errorf("config: unsupported tracing exporter %q (supported: grpc, http)", cfg.TracingExporter)
		}
	}
	return nil
}
