// SPDX-License-Identifier: MIT

// Package api exposes the document processing service over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	mw "github.com/thakurdishanttt/Project-DocuLens/internal/api/middleware"
	"github.com/thakurdishanttt/Project-DocuLens/internal/config"
	"github.com/thakurdishanttt/Project-DocuLens/internal/health"
	"github.com/thakurdishanttt/Project-DocuLens/internal/jobs"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// Server wires the processing pipeline, stores and health checks into the
// HTTP surface.
type Server struct {
	holder    *config.Holder
	store     store.Store
	processor jobs.Processor
	queue     *jobs.Queue
	health    *health.Manager
	logger    zerolog.Logger
}

// Options carries the Server dependencies.
type Options struct {
	Holder *config.Holder
	Store  store.Store
	// Processor runs synchronous document processing.
	Processor jobs.Processor
	// Queue runs asynchronous document processing.
	Queue  *jobs.Queue
	Health *health.Manager
}

// New builds a Server.
func New(opts Options) *Server {
	return &Server{
		holder:    opts.Holder,
		store:     opts.Store,
		processor: opts.Processor,
		queue:     opts.Queue,
		health:    opts.Health,
		logger:    xlog.WithComponent("api"),
	}
}

// Router builds the chi router with the canonical middleware stack and the
// full route surface.
func (s *Server) Router() *chi.Mux {
	cfg := s.holder.Current()

	tracingService := ""
	if cfg.TracingEnabled {
		tracingService = cfg.LogService
	}

	r := mw.NewRouter(mw.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService,
		EnableLogging:         true,
		RateLimitRPM:          cfg.RateLimitRPM,
	})

	r.Get("/health", s.health.ServeHealth)
	r.Get("/ready", s.health.ServeReady)
	if cfg.MetricsAddr == "" {
		// No dedicated metrics listener, expose on the main one.
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.With(mw.UploadRateLimit()).Post("/process", s.handleProcess)
			r.With(mw.UploadRateLimit()).Post("/process/async", s.handleProcessAsync)
			r.Get("/status/{documentID}", s.handleStatus)
			r.Get("/data/{documentID}", s.handleData)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/predefined", s.handlePredefinedContracts)
			r.Get("/active", s.handleActiveContract)
			r.Post("/select/{contractID}", s.handleSelectContract)
		})

		r.Route("/contract-templates", func(r chi.Router) {
			r.Get("/templates", s.handleListTemplates)
			r.Get("/templates/{templateID}", s.handleTemplate)
			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", s.handleListContracts)
				r.Post("/copy-template", s.handleCopyTemplate)
				r.Post("/upload", s.handleUploadContract)
				r.Get("/{contractID}", s.handleContract)
				r.Put("/{contractID}", s.handleUpdateContract)
				r.Delete("/{contractID}", s.handleDeleteContract)
			})
		})
	})

	return r
}
