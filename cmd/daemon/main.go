// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/thakurdishanttt/Project-DocuLens/internal/api"
	"github.com/thakurdishanttt/Project-DocuLens/internal/cache"
	"github.com/thakurdishanttt/Project-DocuLens/internal/classify"
	"github.com/thakurdishanttt/Project-DocuLens/internal/config"
	"github.com/thakurdishanttt/Project-DocuLens/internal/extract"
	"github.com/thakurdishanttt/Project-DocuLens/internal/fsutil"
	"github.com/thakurdishanttt/Project-DocuLens/internal/health"
	"github.com/thakurdishanttt/Project-DocuLens/internal/jobs"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/ocr"
	"github.com/thakurdishanttt/Project-DocuLens/internal/parse"
	"github.com/thakurdishanttt/Project-DocuLens/internal/pipeline"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
	badgerstore "github.com/thakurdishanttt/Project-DocuLens/internal/store/badger"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store/postgrest"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store/sqlite"
	"github.com/thakurdishanttt/Project-DocuLens/internal/telemetry"
	"github.com/thakurdishanttt/Project-DocuLens/internal/version"
)

// statusTTL bounds how long async processing statuses stay queryable.
const statusTTL = 24 * time.Hour

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheckCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "doculens",
		Version: version.Version,
	})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit via --config, otherwise ${DOCULENS_DATA}/config.yaml
	// when it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("DOCULENS_DATA", "/data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("configuration validation failed")
	}

	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.ListenAddr).
		Msg("starting doculens")

	logger.Info().Msgf("→ Store backend: %s", cfg.StoreBackend)
	if cfg.StoreBackend == config.StorePostgREST {
		logger.Info().Msgf("→ Supabase: %s (service key: %v)", maskURL(cfg.SupabaseURL), cfg.SupabaseServiceRoleKey != "")
	}
	logger.Info().Msgf("→ Parse API: %s", maskURL(cfg.LlamaParseBaseURL))
	logger.Info().Msgf("→ Classifier model: %s", cfg.GeminiModel)
	logger.Info().Msgf("→ Workers: %d", cfg.Workers)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)

	// Tracing
	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version.Version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "tracing.init_failed").Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Cache: Redis when configured, in-memory otherwise.
	var resultCache cache.Cache
	var redisCache *cache.RedisCache
	if cfg.RedisAddr != "" {
		redisCache, err = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, xlog.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory cache")
			resultCache = cache.NewMemoryCache(time.Minute)
		} else {
			resultCache = redisCache
			defer func() { _ = redisCache.Close() }()
		}
	} else {
		resultCache = cache.NewMemoryCache(time.Minute)
	}

	// Outbound HTTP goes through a traced transport so upstream calls show
	// up as spans.
	tracedClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.ParseTimeout,
	}

	// Document store
	var docStore store.Store
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "doculens.db")
		}
		if _, statErr := os.Stat(path); statErr == nil {
			findings, verifyErr := sqlite.VerifyIntegrity(path, "quick")
			if verifyErr != nil {
				logger.Fatal().Err(verifyErr).Str("path", path).Msg("sqlite integrity check failed")
			}
			if len(findings) > 0 {
				logger.Fatal().Strs("findings", findings).Str("path", path).Msg("sqlite database is corrupt")
			}
		}
		docStore, err = sqlite.New(path, sqlite.DefaultConfig())
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("failed to open sqlite store")
		}
	case config.StorePostgREST:
		docStore = postgrest.New(postgrest.Config{
			BaseURL:    cfg.SupabaseURL,
			APIKey:     cfg.SupabaseKey,
			ServiceKey: cfg.SupabaseServiceRoleKey,
		}, postgrest.WithHTTPClient(tracedClient))
	default:
		logger.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
	}
	defer func() { _ = docStore.Close() }()

	// Upstream clients
	parser := parse.New(cfg.LlamaParseBaseURL, cfg.LlamaParseAPIKey, parse.WithHTTPClient(tracedClient))
	classifier := classify.New(classify.Config{
		APIKey:            cfg.GoogleAPIKey,
		Model:             cfg.GeminiModel,
		RequestsPerSecond: cfg.ClassifyRPS,
		Cache:             resultCache,
	}, classify.WithHTTPClient(tracedClient))
	extractor := extract.New(cfg.LlamaParseBaseURL, cfg.LlamaExtractAPIKey, extract.WithHTTPClient(tracedClient))
	recognizer := ocr.NewEngine(ocr.Config{
		TessdataPrefix: cfg.TesseractPath,
		Languages:      cfg.OCRLanguages,
		DPI:            cfg.OCRDPI,
	})

	processor := pipeline.New(pipeline.Options{
		Parser:     parser,
		Classifier: classifier,
		Extractor:  extractor,
		Recognizer: recognizer,
		Store:      docStore,
	})

	// Async processing: TTL'd status store plus an on-disk spool.
	statusStore, err := badgerstore.Open(filepath.Join(cfg.DataDir, "status"), statusTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open status store")
	}
	defer func() { _ = statusStore.Close() }()

	spool, err := fsutil.NewSpool(filepath.Join(cfg.DataDir, "spool"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create spool directory")
	}

	queue := jobs.NewQueue(processor, statusStore, spool, jobs.Config{Workers: cfg.Workers})

	// Health
	healthMgr := health.NewManager(version.Version)
	healthMgr.RegisterChecker(health.NewPingChecker("store", docStore.Ping))
	healthMgr.RegisterChecker(health.NewWritableDirChecker("data-dir", cfg.DataDir))
	healthMgr.RegisterChecker(health.NewLastRunChecker("worker", queue.LastSuccess))
	if redisCache != nil {
		healthMgr.RegisterChecker(health.NewOptionalChecker("cache", redisCache.HealthCheck))
	}

	// Contract preload: verify the store answers and log what classification
	// will run against. Non-fatal, the store checker covers readiness.
	if templates, err := docStore.SystemContracts(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not preload system contracts")
	} else {
		logger.Info().Int("count", len(templates)).Msg("system contracts loaded")
	}

	// Hot reload: watch the config file, re-resolve on change.
	holder := config.NewHolder(cfg, config.NewLoader(effectiveConfigPath, version.Version), effectiveConfigPath)
	holder.OnReload(func(config.AppConfig) {
		metrics.IncConfigReload(true)
		logger.Info().Str("event", "config.reloaded").Msg("configuration reloaded")
	})
	holder.OnReloadError(func(error) {
		metrics.IncConfigReload(false)
	})

	server := api.New(api.Options{
		Holder:    holder,
		Store:     docStore,
		Processor: processor,
		Queue:     queue,
		Health:    healthMgr,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = newMetricsServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return queue.Run(gctx)
	})

	// Periodic maintenance: drop spooled uploads older than the status TTL
	// and compact the status store's value log.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := spool.Sweep(statusTTL); err != nil {
					logger.Warn().Err(err).Msg("spool sweep failed")
				} else if n > 0 {
					logger.Info().Int("removed", n).Msg("removed stale spooled uploads")
				}
				statusStore.RunGC()
			}
		}
	})

	if effectiveConfigPath != "" {
		g.Go(func() error {
			if err := holder.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("config watcher stopped")
			}
			return nil
		})
	}

	// SIGHUP forces a reload even without a watched config file; the loader
	// re-resolves the environment either way.
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info().Str("event", "config.sighup").Msg("reload requested via SIGHUP")
				_ = holder.Reload(gctx)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api server shutdown failed")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}
