// SPDX-License-Identifier: MIT

// Package config loads and validates doculens configuration with
// precedence ENV > file > defaults.
package config

import (
	"time"
)

// Store backend identifiers.
const (
	StorePostgREST = "postgrest"
	StoreSQLite    = "sqlite"
)

// AppConfig holds the resolved runtime configuration of the daemon.
type AppConfig struct {
	// Server
	ListenAddr     string
	MetricsAddr    string // empty disables the separate metrics listener
	AllowedOrigins []string
	MaxUploadBytes int64
	RateLimitRPM   int // requests per minute per client IP, 0 disables

	// Logging
	LogLevel   string
	LogService string
	Version    string

	// Data
	DataDir      string
	StoreBackend string // "postgrest" or "sqlite"
	SQLitePath   string

	// Supabase / PostgREST
	SupabaseURL            string
	SupabaseKey            string
	SupabaseServiceRoleKey string

	// Classifier (Gemini)
	GoogleAPIKey string
	GeminiModel  string
	ClassifyRPS  float64 // client-side rate limit for classifier calls

	// Parse / extraction services
	LlamaParseAPIKey   string
	LlamaParseBaseURL  string
	LlamaExtractAPIKey string
	ParseTimeout       time.Duration

	// OCR fallback
	TesseractPath string
	OCRLanguages  []string
	OCRDPI        int

	// Cache (optional Redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Background processing
	Workers int

	// Tracing
	TracingEnabled    bool
	TracingExporter   string // "grpc" or "http"
	TracingEndpoint   string
	TracingSampleRate float64
	Environment       string
}

// Defaults returns the built-in default configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:        ":8080",
		MaxUploadBytes:    32 << 20, // 32 MiB
		RateLimitRPM:      600,
		LogLevel:          "info",
		LogService:        "doculens",
		DataDir:           "/data",
		StoreBackend:      StorePostgREST,
		GeminiModel:       "gemini-1.5-flash-002",
		ClassifyRPS:       2,
		LlamaParseBaseURL: "https://api.llamaparse.com",
		ParseTimeout:      2 * time.Minute,
		OCRLanguages:      []string{"eng"},
		Workers:           4,
		TracingExporter:   "http",
		TracingSampleRate: 0.1,
		Environment:       "production",
	}
}
