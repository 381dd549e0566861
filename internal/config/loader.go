// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration with precedence: ENV > File > Defaults.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	// 1. Merge file settings (if a file was provided)
	if l.configPath != "" {
		fc, err := LoadFileConfig(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fc)
	}

	// 2. Override with environment variables (highest priority)
	mergeEnvConfig(&cfg)

	// Ensure DataDir is absolute to prevent surprises with relative paths
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "doculens.sqlite")
	}

	// 3. Validate
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) {
	if fc == nil {
		return
	}
	setString := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	setString(&cfg.ListenAddr, fc.Server.ListenAddr)
	setString(&cfg.MetricsAddr, fc.Server.MetricsAddr)
	if len(fc.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.Server.AllowedOrigins
	}
	if fc.Server.MaxUploadMB != nil && *fc.Server.MaxUploadMB > 0 {
		cfg.MaxUploadBytes = int64(*fc.Server.MaxUploadMB) << 20
	}
	if fc.Server.RateLimitRPM != nil {
		cfg.RateLimitRPM = *fc.Server.RateLimitRPM
	}
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogService, fc.Log.Service)
	setString(&cfg.StoreBackend, fc.Store.Backend)
	setString(&cfg.DataDir, fc.Store.DataDir)
	setString(&cfg.SQLitePath, fc.Store.SQLitePath)
	setString(&cfg.SupabaseURL, fc.Supabase.URL)
	setString(&cfg.GeminiModel, fc.Classifier.Model)
	if fc.Classifier.RPS != nil && *fc.Classifier.RPS > 0 {
		cfg.ClassifyRPS = *fc.Classifier.RPS
	}
	setString(&cfg.LlamaParseBaseURL, fc.Parse.BaseURL)
	if fc.Parse.TimeoutSeconds != nil && *fc.Parse.TimeoutSeconds > 0 {
		cfg.ParseTimeout = time.Duration(*fc.Parse.TimeoutSeconds) * time.Second
	}
	setString(&cfg.TesseractPath, fc.OCR.TesseractPath)
	if len(fc.OCR.Languages) > 0 {
		cfg.OCRLanguages = fc.OCR.Languages
	}
	setString(&cfg.RedisAddr, fc.Redis.Addr)
	if fc.Redis.DB != nil {
		cfg.RedisDB = *fc.Redis.DB
	}
	if fc.Workers != nil && *fc.Workers > 0 {
		cfg.Workers = *fc.Workers
	}
	if fc.Tracing.Enabled != nil {
		cfg.TracingEnabled = *fc.Tracing.Enabled
	}
	setString(&cfg.TracingExporter, fc.Tracing.Exporter)
	setString(&cfg.TracingEndpoint, fc.Tracing.Endpoint)
	if fc.Tracing.SampleRate != nil {
		cfg.TracingSampleRate = *fc.Tracing.SampleRate
	}
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("DOCULENS_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("DOCULENS_METRICS_ADDR", cfg.MetricsAddr)
	cfg.AllowedOrigins = ParseStringSlice("DOCULENS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.MaxUploadBytes = ParseInt64("DOCULENS_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.RateLimitRPM = ParseInt("DOCULENS_RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.LogLevel = ParseString("DOCULENS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("LOG_SERVICE", cfg.LogService)

	cfg.DataDir = ParseString("DOCULENS_DATA", cfg.DataDir)
	cfg.StoreBackend = ParseString("DOCULENS_STORE", cfg.StoreBackend)
	cfg.SQLitePath = ParseString("DOCULENS_SQLITE_PATH", cfg.SQLitePath)

	cfg.SupabaseURL = ParseString("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseKey = ParseString("SUPABASE_KEY", cfg.SupabaseKey)
	cfg.SupabaseServiceRoleKey = ParseString("SUPABASE_SERVICE_ROLE_KEY", cfg.SupabaseServiceRoleKey)

	cfg.GoogleAPIKey = ParseString("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.GeminiModel = ParseString("GEMINI_MODEL", cfg.GeminiModel)
	cfg.ClassifyRPS = ParseFloat("DOCULENS_CLASSIFY_RPS", cfg.ClassifyRPS)

	cfg.LlamaParseAPIKey = ParseString("LLAMA_PARSE_API_KEY", cfg.LlamaParseAPIKey)
	cfg.LlamaParseBaseURL = ParseString("LLAMA_PARSE_BASE_URL", cfg.LlamaParseBaseURL)
	cfg.LlamaExtractAPIKey = ParseString("LLAMA_EXTRACT_API_KEY", cfg.LlamaExtractAPIKey)
	cfg.ParseTimeout = ParseDuration("DOCULENS_PARSE_TIMEOUT", cfg.ParseTimeout)

	cfg.TesseractPath = ParseString("TESSERACT_PATH", cfg.TesseractPath)
	cfg.OCRLanguages = ParseStringSlice("DOCULENS_OCR_LANGUAGES", cfg.OCRLanguages)
	cfg.OCRDPI = ParseInt("DOCULENS_OCR_DPI", cfg.OCRDPI)

	cfg.RedisAddr = ParseString("DOCULENS_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("DOCULENS_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("DOCULENS_REDIS_DB", cfg.RedisDB)

	cfg.Workers = ParseInt("DOCULENS_WORKERS", cfg.Workers)

	cfg.TracingEnabled = ParseBool("DOCULENS_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("DOCULENS_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("DOCULENS_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = ParseFloat("DOCULENS_TRACING_SAMPLE_RATE", cfg.TracingSampleRate)
	cfg.Environment = ParseString("DOCULENS_ENVIRONMENT", cfg.Environment)
}
