// SPDX-License-Identifier: MIT

// Package jobs runs asynchronous document processing: uploads are spooled
// to disk, tracked in the status store and worked off by a bounded pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thakurdishanttt/Project-DocuLens/internal/fsutil"
	xlog "github.com/thakurdishanttt/Project-DocuLens/internal/log"
	"github.com/thakurdishanttt/Project-DocuLens/internal/metrics"
	"github.com/thakurdishanttt/Project-DocuLens/internal/pipeline"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
	badgerstore "github.com/thakurdishanttt/Project-DocuLens/internal/store/badger"
)

// ErrQueueFull indicates the queue cannot accept more work right now.
var ErrQueueFull = errors.New("jobs: queue full")

// Task is one queued document.
type Task struct {
	ProcessingID string
	Filename     string
	SpoolPath    string
	UserEmail    string
	OrgName      string
}

// Processor is the synchronous pipeline the workers delegate to.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*store.Document, error)
}

// Queue accepts async processing requests and works them off with a fixed
// number of workers.
type Queue struct {
	processor Processor
	status    *badgerstore.StatusStore
	spool     *fsutil.Spool
	tasks     chan Task
	workers   int
	logger    zerolog.Logger

	lastSuccess atomic.Int64 // unix nanos of the last completed job
}

// Config sizes the queue.
type Config struct {
	Workers int
	// Backlog is the channel capacity. Enqueue fails fast once full.
	Backlog int
}

// NewQueue builds a queue. Run must be called before Enqueue accepts work.
func NewQueue(processor Processor, status *badgerstore.StatusStore, spool *fsutil.Spool, cfg Config) *Queue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = 64
	}
	return &Queue{
		processor: processor,
		status:    status,
		spool:     spool,
		tasks:     make(chan Task, backlog),
		workers:   workers,
		logger:    xlog.WithComponent("jobs"),
	}
}

// Enqueue spools the upload, records a pending status and hands the task to
// the worker pool. It returns the processing ID for status polling.
func (q *Queue) Enqueue(ctx context.Context, filename string, content []byte, userEmail, orgName string) (string, error) {
	processingID := uuid.NewString()

	spoolPath, err := q.spool.Put(processingID, filename, content)
	if err != nil {
		return "", err
	}

	err = q.status.Put(ctx, badgerstore.Status{
		ProcessingID: processingID,
		Status:       store.StatusPending,
	})
	if err != nil {
		_ = q.spool.Remove(spoolPath)
		return "", fmt.Errorf("record pending status: %w", err)
	}

	task := Task{
		ProcessingID: processingID,
		Filename:     filename,
		SpoolPath:    spoolPath,
		UserEmail:    userEmail,
		OrgName:      orgName,
	}
	select {
	case q.tasks <- task:
	default:
		_ = q.spool.Remove(spoolPath)
		_ = q.status.Delete(ctx, processingID)
		return "", ErrQueueFull
	}

	metrics.SetQueueDepth(len(q.tasks))
	q.logger.Info().
		Str("processing_id", processingID).
		Str(xlog.FieldFilename, filename).
		Msg("document queued")
	return processingID, nil
}

// Run blocks working the queue until ctx is canceled. Queued tasks left in
// the channel at shutdown stay in the spool for replay.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.worker(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			metrics.SetQueueDepth(len(q.tasks))
			q.work(ctx, task)
		}
	}
}

func (q *Queue) work(ctx context.Context, task Task) {
	metrics.WorkerStarted()
	defer metrics.WorkerFinished()

	log := q.logger.With().Str("processing_id", task.ProcessingID).Logger()

	_ = q.status.Put(ctx, badgerstore.Status{
		ProcessingID: task.ProcessingID,
		Status:       store.StatusProcessing,
	})

	content, err := os.ReadFile(task.SpoolPath)
	if err != nil {
		q.fail(ctx, task, "", fmt.Errorf("read spooled upload: %w", err))
		return
	}

	start := time.Now()
	doc, err := q.processor.Process(ctx, pipeline.Request{
		Filename:  task.Filename,
		Content:   content,
		UserEmail: task.UserEmail,
		OrgName:   task.OrgName,
	})
	if err != nil {
		// The pipeline persists a failed document record when it got far
		// enough to create one; keep its ID pollable.
		documentID := ""
		if doc != nil {
			documentID = doc.ID
		}
		q.fail(ctx, task, documentID, err)
		return
	}

	_ = q.status.Put(ctx, badgerstore.Status{
		ProcessingID: task.ProcessingID,
		DocumentID:   doc.ID,
		Status:       doc.Status,
		Error:        doc.Error,
	})
	_ = q.spool.Remove(task.SpoolPath)
	q.lastSuccess.Store(time.Now().UnixNano())
	log.Info().
		Str(xlog.FieldDocumentID, doc.ID).
		Dur("elapsed", time.Since(start)).
		Msg("async processing complete")
}

func (q *Queue) fail(ctx context.Context, task Task, documentID string, err error) {
	_ = q.status.Put(ctx, badgerstore.Status{
		ProcessingID: task.ProcessingID,
		DocumentID:   documentID,
		Status:       store.StatusFailed,
		Error:        err.Error(),
	})
	_ = q.spool.Remove(task.SpoolPath)
	q.logger.Error().Err(err).Str("processing_id", task.ProcessingID).Msg("async processing failed")
}

// Status returns the current processing status for a processing ID.
func (q *Queue) Status(ctx context.Context, processingID string) (*badgerstore.Status, error) {
	return q.status.Get(ctx, processingID)
}

// LastSuccess returns when a job last completed, zero when none has yet.
func (q *Queue) LastSuccess() time.Time {
	n := q.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
