// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/thakurdishanttt/Project-DocuLens/internal/fsutil"
	"github.com/thakurdishanttt/Project-DocuLens/internal/pipeline"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
	badgerstore "github.com/thakurdishanttt/Project-DocuLens/internal/store/badger"
)

type recordingProcessor struct {
	mu       sync.Mutex
	requests []pipeline.Request
	err      error
	block    chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, req pipeline.Request) (*store.Document, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		// Mirrors the pipeline: failures come with a persisted document.
		return &store.Document{ID: "doc-" + req.Filename, Status: store.StatusFailed, Error: p.err.Error()}, p.err
	}
	return &store.Document{ID: "doc-" + req.Filename, Status: store.StatusCompleted}, nil
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newTestQueue(t *testing.T, processor Processor, cfg Config) *Queue {
	t.Helper()

	status, err := badgerstore.Open(filepath.Join(t.TempDir(), "status"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = status.Close() })

	spool, err := fsutil.NewSpool(filepath.Join(t.TempDir(), "spool"))
	require.NoError(t, err)

	return NewQueue(processor, status, spool, cfg)
}

func TestQueue_ProcessesEnqueuedWork(t *testing.T) {
	processor := &recordingProcessor{}
	q := newTestQueue(t, processor, Config{Workers: 2})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	id, err := q.Enqueue(t.Context(), "lease.pdf", []byte("%PDF-1.7"), "jane@example.com", "Acme")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		s, err := q.Status(t.Context(), id)
		return err == nil && s.Status == store.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	s, err := q.Status(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "doc-lease.pdf", s.DocumentID)
	assert.Equal(t, 1, processor.count())
	assert.Equal(t, "jane@example.com", processor.requests[0].UserEmail)
	assert.False(t, q.LastSuccess().IsZero())

	cancel()
	require.NoError(t, <-done)
}

func TestQueue_FailureRecordsError(t *testing.T) {
	processor := &recordingProcessor{err: errors.New("classify: upstream down")}
	q := newTestQueue(t, processor, Config{Workers: 1})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	id, err := q.Enqueue(t.Context(), "bad.pdf", []byte("%PDF-1.7"), "", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := q.Status(t.Context(), id)
		return err == nil && s.Status == store.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	s, err := q.Status(t.Context(), id)
	require.NoError(t, err)
	assert.Contains(t, s.Error, "upstream down")
	assert.Equal(t, "doc-bad.pdf", s.DocumentID)

	cancel()
	require.NoError(t, <-done)
}

func TestQueue_FullBacklog(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	processor := &recordingProcessor{block: block}
	q := newTestQueue(t, processor, Config{Workers: 1, Backlog: 1})

	// No workers running: first enqueue fills the backlog, second is
	// rejected.
	_, err := q.Enqueue(t.Context(), "a.pdf", []byte("%PDF-1.7"), "", "")
	require.NoError(t, err)

	_, err = q.Enqueue(t.Context(), "b.pdf", []byte("%PDF-1.7"), "", "")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_PendingStatusBeforeRun(t *testing.T) {
	q := newTestQueue(t, &recordingProcessor{}, Config{Workers: 1})

	id, err := q.Enqueue(t.Context(), "waiting.pdf", []byte("%PDF-1.7"), "", "")
	require.NoError(t, err)

	s, err := q.Status(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, s.Status)
}

func TestQueue_WorkersShutDownCleanly(t *testing.T) {
	q := newTestQueue(t, &recordingProcessor{}, Config{Workers: 4})
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)
}
