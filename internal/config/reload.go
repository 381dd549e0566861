// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thakurdishanttt/Project-DocuLens/internal/log"
)

// Holder keeps the current configuration and supports atomic hot reload.
// Readers always observe a complete snapshot; a failed reload keeps the
// previous configuration in place.
type Holder struct {
	mu        sync.RWMutex
	current   AppConfig
	loader    *Loader
	path      string
	onReload  []func(AppConfig)
	onFailure []func(error)
}

// NewHolder creates a Holder seeded with cfg.
func NewHolder(cfg AppConfig, loader *Loader, path string) *Holder {
	return &Holder{current: cfg, loader: loader, path: path}
}

// Current returns the active configuration snapshot.
func (h *Holder) Current() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers a callback invoked with the new configuration after a
// successful reload. Callbacks run on the reload goroutine.
func (h *Holder) OnReload(fn func(AppConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// OnReloadError registers a callback invoked when a reload attempt fails and
// the previous configuration is kept.
func (h *Holder) OnReloadError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFailure = append(h.onFailure, fn)
}

// Reload re-runs the loader and swaps in the new configuration on success.
func (h *Holder) Reload(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "config")

	cfg, err := h.loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Str("path", h.path).
			Msg("configuration reload failed, keeping previous configuration")
		h.mu.RLock()
		failures := make([]func(error), len(h.onFailure))
		copy(failures, h.onFailure)
		h.mu.RUnlock()
		for _, fn := range failures {
			fn(err)
		}
		return err
	}

	h.mu.Lock()
	h.current = cfg
	callbacks := make([]func(AppConfig), len(h.onReload))
	copy(callbacks, h.onReload)
	h.mu.Unlock()

	logger.Info().
		Str("event", "config.reloaded").
		Str("path", h.path).
		Msg("configuration reloaded")

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Watch observes the config file for changes and reloads on write events.
// It blocks until ctx is cancelled. Reload storms from editors that write in
// multiple steps are debounced.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory; editors often replace the file wholesale, which
	// would invalidate a watch on the file itself.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return err
	}

	logger := log.WithComponent("config")
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target := filepath.Clean(h.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				_ = h.Reload(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("event", "config.watch_error").Msg("config watcher error")
		}
	}
}
