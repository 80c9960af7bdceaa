package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRun(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Minute), nextRun(base, base.Add(10*time.Second), time.Minute))
	assert.Equal(t, base.Add(3*time.Minute), nextRun(base, base.Add(150*time.Second), time.Minute))
	assert.Equal(t, base.Add(2*time.Minute), nextRun(base, base.Add(time.Minute), time.Minute))
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		New("test", 10*time.Millisecond).Run(ctx, func(context.Context) {
			if runs.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestScheduler_InvalidInterval(t *testing.T) {
	called := false
	New("bad", 0).Run(context.Background(), func(context.Context) { called = true })
	assert.False(t, called)
}
