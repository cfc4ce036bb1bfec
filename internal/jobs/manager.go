// Package jobs runs acquisition batches and download runs as background
// jobs behind the HTTP API. Jobs queue in submission order and execute
// one at a time; state is held in memory for the lifetime of the
// process.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitvault/scraper/internal/download"
	"github.com/kitvault/scraper/internal/models"
)

type Kind string

const (
	KindBatch    Kind = "batch"
	KindDownload Kind = "download"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var ErrJobNotFound = errors.New("job not found")

// Job is one queued or finished unit of work.
type Job struct {
	ID          string               `json:"id"`
	Kind        Kind                 `json:"kind"`
	Status      Status               `json:"status"`
	URLs        []string             `json:"urls,omitempty"`
	RecordSet   string               `json:"record_set,omitempty"`
	Batch       *models.BatchResult  `json:"batch,omitempty"`
	Download    *download.RunResult  `json:"download,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// BatchProcessor turns input URLs into a persisted record set.
type BatchProcessor interface {
	Process(ctx context.Context, urls []string) (models.BatchResult, error)
}

// DownloadRunner acquires images for a record set.
type DownloadRunner interface {
	Run(ctx context.Context, recs []models.CanonicalProduct) download.RunResult
}

// RecordSource resolves record sets for download jobs.
type RecordSource interface {
	Load(path string) ([]models.CanonicalProduct, error)
	Latest() (string, []models.CanonicalProduct, error)
}

type Manager struct {
	processor BatchProcessor
	runner    DownloadRunner
	records   RecordSource
	queue     *Queue
	logger    *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	cancels map[string]context.CancelFunc
}

func NewManager(processor BatchProcessor, runner DownloadRunner, records RecordSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		processor: processor,
		runner:    runner,
		records:   records,
		queue:     NewQueue(),
		logger:    logger.With("component", "job_manager"),
		jobs:      make(map[string]*Job),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// CreateBatchJob queues an acquisition batch over the given URLs.
func (m *Manager) CreateBatchJob(urls []string) (*Job, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("batch job needs at least one URL")
	}
	return m.enqueue(&Job{
		ID:        uuid.New().String(),
		Kind:      KindBatch,
		Status:    StatusPending,
		URLs:      urls,
		CreatedAt: time.Now(),
	})
}

// CreateDownloadJob queues a download run over one record set. An empty
// path means the most recent set.
func (m *Manager) CreateDownloadJob(recordSet string) (*Job, error) {
	return m.enqueue(&Job{
		ID:        uuid.New().String(),
		Kind:      KindDownload,
		Status:    StatusPending,
		RecordSet: recordSet,
		CreatedAt: time.Now(),
	})
}

func (m *Manager) enqueue(job *Job) (*Job, error) {
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	if err := m.queue.Push(job); err != nil {
		m.mu.Lock()
		job.Status = StatusFailed
		job.Error = err.Error()
		m.mu.Unlock()
		return nil, fmt.Errorf("queue job: %w", err)
	}

	m.logger.Info("job queued", "id", job.ID, "kind", job.Kind)
	return m.snapshot(job.ID), nil
}

// GetJob returns a copy of the job's current state.
func (m *Manager) GetJob(id string) (*Job, error) {
	job := m.snapshot(id)
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Job, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		cp := *m.jobs[m.order[i]]
		out = append(out, &cp)
	}
	return out
}

// CancelJob cancels a pending or running job. Pending jobs flip to
// cancelled immediately; running jobs stop at their next checkpoint.
func (m *Manager) CancelJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	switch job.Status {
	case StatusPending:
		job.Status = StatusCancelled
		now := time.Now()
		job.CompletedAt = &now
	case StatusRunning:
		if cancel := m.cancels[id]; cancel != nil {
			cancel()
		}
	default:
		return fmt.Errorf("job %s already %s", id, job.Status)
	}
	return nil
}

// Start runs the worker loop until ctx is cancelled. Call it once, in
// its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	for {
		job, err := m.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Error("queue pop failed", "error", err)
			}
			return
		}
		m.execute(ctx, job)
	}
}

// Close stops accepting jobs and unblocks the worker.
func (m *Manager) Close() error {
	return m.queue.Close()
}

func (m *Manager) execute(ctx context.Context, job *Job) {
	m.mu.Lock()
	if job.Status != StatusPending {
		// Cancelled while still queued.
		m.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	now := time.Now()
	job.StartedAt = &now
	jobCtx, cancel := context.WithCancel(ctx)
	m.cancels[job.ID] = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.cancels, job.ID)
		m.mu.Unlock()
	}()

	m.logger.Info("job started", "id", job.ID, "kind", job.Kind)

	var runErr error
	switch job.Kind {
	case KindBatch:
		result, err := m.processor.Process(jobCtx, job.URLs)
		m.mu.Lock()
		job.Batch = &result
		m.mu.Unlock()
		runErr = err
	case KindDownload:
		runErr = m.runDownload(jobCtx, job)
	default:
		runErr = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	m.mu.Lock()
	done := time.Now()
	job.CompletedAt = &done
	switch {
	case jobCtx.Err() != nil && ctx.Err() == nil:
		job.Status = StatusCancelled
	case runErr != nil:
		job.Status = StatusFailed
		job.Error = runErr.Error()
	default:
		job.Status = StatusCompleted
	}
	status := job.Status
	m.mu.Unlock()

	m.logger.Info("job finished", "id", job.ID, "status", status)
}

func (m *Manager) runDownload(ctx context.Context, job *Job) error {
	path := job.RecordSet
	var (
		recs []models.CanonicalProduct
		err  error
	)
	if path == "" {
		path, recs, err = m.records.Latest()
	} else {
		recs, err = m.records.Load(path)
	}
	if err != nil {
		return fmt.Errorf("resolve record set: %w", err)
	}

	m.mu.Lock()
	job.RecordSet = path
	m.mu.Unlock()

	result := m.runner.Run(ctx, recs)
	m.mu.Lock()
	job.Download = &result
	m.mu.Unlock()
	return nil
}

func (m *Manager) snapshot(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}
