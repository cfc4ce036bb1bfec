package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitvault/scraper/internal/download"
	"github.com/kitvault/scraper/internal/models"
)

type fakeProcessor struct {
	calls  [][]string
	result models.BatchResult
	err    error
	block  chan struct{} // when set, Process waits for ctx or close
}

func (f *fakeProcessor) Process(ctx context.Context, urls []string) (models.BatchResult, error) {
	f.calls = append(f.calls, urls)
	if f.block != nil {
		select {
		case <-ctx.Done():
			return f.result, ctx.Err()
		case <-f.block:
		}
	}
	return f.result, f.err
}

type fakeRunner struct {
	got    []models.CanonicalProduct
	result download.RunResult
}

func (f *fakeRunner) Run(_ context.Context, recs []models.CanonicalProduct) download.RunResult {
	f.got = recs
	return f.result
}

type fakeRecords struct {
	latestPath string
	recs       []models.CanonicalProduct
	err        error
}

func (f *fakeRecords) Load(path string) ([]models.CanonicalProduct, error) {
	return f.recs, f.err
}

func (f *fakeRecords) Latest() (string, []models.CanonicalProduct, error) {
	return f.latestPath, f.recs, f.err
}

func newTestManager(p BatchProcessor, r DownloadRunner, rs RecordSource) *Manager {
	return NewManager(p, r, rs, slog.New(slog.DiscardHandler))
}

func waitForStatus(t *testing.T, m *Manager, id string, want Status) *Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, err := m.GetJob(id)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s stuck in %s, want %s", id, job.Status, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBatchJobLifecycle(t *testing.T) {
	proc := &fakeProcessor{result: models.BatchResult{OK: true, Successes: 2}}
	m := newTestManager(proc, &fakeRunner{}, &fakeRecords{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	job, err := m.CreateBatchJob([]string{"https://a.example/product/x"})
	require.NoError(t, err)
	assert.Equal(t, KindBatch, job.Kind)

	done := waitForStatus(t, m, job.ID, StatusCompleted)
	require.NotNil(t, done.Batch)
	assert.Equal(t, 2, done.Batch.Successes)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, [][]string{{"https://a.example/product/x"}}, proc.calls)
}

func TestBatchJobRejectsEmptyInput(t *testing.T) {
	m := newTestManager(&fakeProcessor{}, &fakeRunner{}, &fakeRecords{})
	_, err := m.CreateBatchJob(nil)
	assert.Error(t, err)
}

func TestFailedBatchJobRecordsError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("upstream unreachable")}
	m := newTestManager(proc, &fakeRunner{}, &fakeRecords{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	job, err := m.CreateBatchJob([]string{"https://a.example/product/x"})
	require.NoError(t, err)

	done := waitForStatus(t, m, job.ID, StatusFailed)
	assert.Equal(t, "upstream unreachable", done.Error)
}

func TestDownloadJobUsesLatestRecordSet(t *testing.T) {
	recs := []models.CanonicalProduct{{AlbumURL: "https://a.example/product/x"}}
	runner := &fakeRunner{result: download.RunResult{TotalAlbums: 1}}
	m := newTestManager(&fakeProcessor{}, runner, &fakeRecords{latestPath: "records/products_x.json", recs: recs})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	job, err := m.CreateDownloadJob("")
	require.NoError(t, err)

	done := waitForStatus(t, m, job.ID, StatusCompleted)
	assert.Equal(t, "records/products_x.json", done.RecordSet)
	require.NotNil(t, done.Download)
	assert.Equal(t, 1, done.Download.TotalAlbums)
	assert.Equal(t, recs, runner.got)
}

func TestDownloadJobFailsWhenNoRecordSets(t *testing.T) {
	m := newTestManager(&fakeProcessor{}, &fakeRunner{}, &fakeRecords{err: errors.New("no record sets found")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	job, err := m.CreateDownloadJob("")
	require.NoError(t, err)

	done := waitForStatus(t, m, job.ID, StatusFailed)
	assert.Contains(t, done.Error, "no record sets")
}

func TestCancelRunningJob(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	m := newTestManager(proc, &fakeRunner{}, &fakeRecords{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	job, err := m.CreateBatchJob([]string{"https://a.example/product/x"})
	require.NoError(t, err)

	waitForStatus(t, m, job.ID, StatusRunning)
	require.NoError(t, m.CancelJob(job.ID))
	waitForStatus(t, m, job.ID, StatusCancelled)
}

func TestCancelPendingJob(t *testing.T) {
	// No worker running, so the job stays queued.
	m := newTestManager(&fakeProcessor{}, &fakeRunner{}, &fakeRecords{})

	job, err := m.CreateBatchJob([]string{"https://a.example/product/x"})
	require.NoError(t, err)

	require.NoError(t, m.CancelJob(job.ID))
	got, err := m.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	// A later worker must skip it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	got, err = m.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestListJobsNewestFirst(t *testing.T) {
	m := newTestManager(&fakeProcessor{}, &fakeRunner{}, &fakeRecords{})

	first, err := m.CreateBatchJob([]string{"https://a.example/product/1"})
	require.NoError(t, err)
	second, err := m.CreateDownloadJob("records/products_x.json")
	require.NoError(t, err)

	list := m.ListJobs()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestGetJobUnknownID(t *testing.T) {
	m := newTestManager(&fakeProcessor{}, &fakeRunner{}, &fakeRecords{})
	_, err := m.GetJob("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
