package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	a := &Job{ID: "a"}
	b := &Job{ID: "b"}
	require.NoError(t, q.Push(a))
	require.NoError(t, q.Push(b))
	assert.Equal(t, 2, q.Size())

	got, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	got, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
	assert.Zero(t, q.Size())
}

func TestPopWakesOnPush(t *testing.T) {
	q := NewQueue()

	done := make(chan *Job, 1)
	go func() {
		job, err := q.Pop(context.Background())
		if err == nil {
			done <- job
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&Job{ID: "late"}))

	select {
	case job := <-done:
		assert.Equal(t, "late", job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}

// An empty-queue Pop cancelled mid-wait must return ctx.Err and leave
// the queue usable; repeated tight cancellations must never corrupt its
// lock state.
func TestPopSurvivesRepeatedCancellation(t *testing.T) {
	q := NewQueue()

	for i := 0; i < 1000; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Microsecond)
		_, err := q.Pop(ctx)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	// The queue still works afterwards.
	require.NoError(t, q.Push(&Job{ID: "after"}))
	job, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", job.ID)
}

func TestConcurrentCancelledPopsAndPushes(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Microsecond)
				q.Pop(ctx)
				cancel()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			q.Push(&Job{ID: "x"})
		}
	}()
	wg.Wait()
}

func TestCloseUnblocksPop(t *testing.T) {
	q := NewQueue()

	errs := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not unblock on Close")
	}
}

func TestClosedQueueDrainsRemainingJobs(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Push(&Job{ID: "queued"}))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Job{ID: "rejected"}), ErrQueueClosed)

	job, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", job.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
