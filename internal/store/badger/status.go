// SPDX-License-Identifier: MIT

// Package badger keeps async processing status in an embedded BadgerDB.
// Status entries are transient: they carry a TTL and expire on their own
// once the document record is durable in the main store.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

// Status is the transient processing state of one async job.
type Status struct {
	ProcessingID string    `json:"processing_id"`
	DocumentID   string    `json:"document_id,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusStore persists Status entries.
type StatusStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

const defaultTTL = 24 * time.Hour

// Open creates or opens the status database under dir.
func Open(dir string, ttl time.Duration) (*StatusStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create status store dir: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	return &StatusStore{
		db:     db,
		ttl:    ttl,
		logger: xlog.WithComponent("store.badger"),
	}, nil
}

func key(processingID string) []byte {
	return []byte("status:" + processingID)
}

// Put writes a status entry with the store's TTL.
func (s *StatusStore) Put(ctx context.Context, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status.UpdatedAt = time.Now().UTC()
	val, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(status.ProcessingID), val).WithTTL(s.ttl)
		return txn.SetEntry(e)
	})
}

// Get fetches a status entry. Missing or expired entries return
// store.ErrNotFound.
func (s *StatusStore) Get(ctx context.Context, processingID string) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var status Status
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(processingID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &status)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("processing status %s: %w", processingID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get processing status: %w", err)
	}
	return &status, nil
}

// Delete removes a status entry.
func (s *StatusStore) Delete(ctx context.Context, processingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(processingID))
	})
}

// RunGC triggers Badger value log garbage collection. Call periodically
// from a background job.
func (s *StatusStore) RunGC() {
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}

func (s *StatusStore) Close() error {
	return s.db.Close()
}
