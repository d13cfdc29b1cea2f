package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
)

func await(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not complete in time")
	}
}

func TestSubmitRunsTaskToCompletion(t *testing.T) {
	p := New(2, log.NewNop())
	defer p.Shutdown(true, time.Second)

	var ran int32
	h := p.Submit(context.Background(), Normal, "t1", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	await(t, h)
	assert.Equal(t, int32(1), ran)
	assert.Equal(t, StatusCompleted, h.Record().Status)
}

func TestSubmitCapturesTaskError(t *testing.T) {
	p := New(1, log.NewNop())
	defer p.Shutdown(true, time.Second)

	wantErr := errors.New("boom")
	h := p.Submit(context.Background(), Normal, "t2", func(ctx context.Context) error {
		return wantErr
	})
	await(t, h)
	rec := h.Record()
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, wantErr, rec.Err)
}

func TestHigherPriorityRunsFirstUnderContention(t *testing.T) {
	p := New(1, log.NewNop())
	defer p.Shutdown(true, time.Second)

	block := make(chan struct{})
	blocker := p.Submit(context.Background(), Normal, "blocker", func(ctx context.Context) error {
		<-block
		return nil
	})

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	low := p.Submit(context.Background(), Low, "low", record("low"))
	high := p.Submit(context.Background(), High, "high", record("high"))
	critical := p.Submit(context.Background(), Critical, "critical", record("critical"))

	close(block)
	await(t, blocker)
	await(t, low)
	await(t, high)
	await(t, critical)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, "critical", order[0])
	assert.Equal(t, "high", order[1])
	assert.Equal(t, "low", order[2])
}

func TestStatsReflectCompletedAndFailed(t *testing.T) {
	p := New(2, log.NewNop())
	defer p.Shutdown(true, time.Second)

	ok := p.Submit(context.Background(), Normal, "ok", func(ctx context.Context) error { return nil })
	fail := p.Submit(context.Background(), Normal, "fail", func(ctx context.Context) error { return errors.New("x") })
	await(t, ok)
	await(t, fail)

	st := p.Stats()
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Failed)
}

func TestShutdownWithoutWaitCancelsQueuedTasks(t *testing.T) {
	p := New(1, log.NewNop())

	block := make(chan struct{})
	blocker := p.Submit(context.Background(), Normal, "blocker", func(ctx context.Context) error {
		<-block
		return nil
	})

	var queuedRan int32
	queued := p.Submit(context.Background(), Normal, "queued", func(ctx context.Context) error {
		atomic.AddInt32(&queuedRan, 1)
		return nil
	})

	p.Shutdown(false, time.Second)
	close(block)
	await(t, blocker)
	await(t, queued)

	assert.Equal(t, StatusCancelled, queued.Record().Status)
	assert.Equal(t, int32(0), queuedRan)
}

func TestSubmitAfterShutdownReturnsCancelledHandle(t *testing.T) {
	p := New(1, log.NewNop())
	p.Shutdown(true, time.Second)

	h := p.Submit(context.Background(), Normal, "late", func(ctx context.Context) error { return nil })
	await(t, h)
	assert.Equal(t, StatusCancelled, h.Record().Status)
}
