package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Inc(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name]++
}

func (r *countingRecorder) get(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func TestEnqueueRunsInBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &countingRecorder{}
	svc := New(4, rec)
	svc.Start(ctx)

	done := make(chan string, 1)
	ok := svc.Enqueue(JobNotifyDecision, "tok", func(context.Context) (any, error) {
		done <- "ran"
		return nil, nil
	})
	require.True(t, ok)

	select {
	case got := <-done:
		assert.Equal(t, "ran", got)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	cancel()
	svc.Wait()
	assert.Equal(t, 1, rec.get("job_completed"))
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	rec := &countingRecorder{}
	svc := New(1, rec)
	noop := func(context.Context) (any, error) { return nil, nil }

	assert.True(t, svc.Enqueue(JobNotifyDecision, "a", noop))
	assert.False(t, svc.Enqueue(JobNotifyDecision, "b", noop))
	assert.Equal(t, 1, rec.get("job_dropped"))
}

func TestRunNow(t *testing.T) {
	rec := &countingRecorder{}
	svc := New(1, rec)

	out, err := svc.RunNow(context.Background(), JobReplayPurge, "", func(context.Context) (any, error) {
		return int64(3), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	boom := errors.New("boom")
	_, err = svc.RunNow(context.Background(), JobReplayPurge, "", func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = svc.RunNow(context.Background(), JobReplayPurge, "", func(context.Context) (any, error) {
		panic("bad job")
	})
	assert.ErrorIs(t, err, errPanicked)
	assert.Equal(t, 2, rec.get("job_failed"))
	assert.Equal(t, 1, rec.get("job_completed"))
}

func TestEverySchedulesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(16, nil)
	svc.Start(ctx)

	var runs atomic.Int32
	svc.Every(ctx, JobReplayPurge, 5*time.Millisecond, func(context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	svc.Wait()
}
