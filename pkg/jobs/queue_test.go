package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type jobRecorder struct {
	mu       sync.Mutex
	ids      []string
	ctxErrs  []error
	gate     chan struct{}
	gateOnce sync.Once
}

func (r *jobRecorder) handle(ctx context.Context, job Job) error {
	if r.gate != nil {
		r.gateOnce.Do(func() { <-r.gate })
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, job.ID)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func (r *jobRecorder) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestQueueProcessesEnqueuedJobs(t *testing.T) {
	rec := &jobRecorder{}
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, BufferSize: 8, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "one"}))
	require.NoError(t, q.Enqueue(Job{ID: "two"}))

	require.Eventually(t, func() bool {
		return len(rec.processed()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("test", (&jobRecorder{}).handle, QueueConfig{Logger: zap.NewNop()})
	assert.Error(t, q.Enqueue(Job{ID: "early"}))
}

func TestQueueDropsWhenBufferFull(t *testing.T) {
	rec := &jobRecorder{gate: make(chan struct{})}
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, BufferSize: 1, Logger: zap.NewNop()})
	q.Start(context.Background())

	// The worker blocks on the first job; the buffer holds one more.
	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	require.Eventually(t, func() bool {
		return q.Enqueue(Job{ID: "buffered"}) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Error(t, q.Enqueue(Job{ID: "overflow"}))

	close(rec.gate)
	q.Stop()
}

func TestQueueStopFlushesBufferedJobsWithLiveContext(t *testing.T) {
	rec := &jobRecorder{gate: make(chan struct{})}
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, BufferSize: 8, Logger: zap.NewNop()})
	q.Start(context.Background())

	// First job parks the worker on the gate; the rest stay buffered.
	require.NoError(t, q.Enqueue(Job{ID: "gated"}))
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: fmt.Sprintf("buffered-%d", i)}))
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(rec.gate)
	}()
	q.Stop()

	processed := rec.processed()
	require.Len(t, processed, 6, "stop flushes everything still buffered")
	for i, err := range rec.ctxErrs {
		assert.NoError(t, err, "job %s ran with a live context", processed[i])
	}
}
