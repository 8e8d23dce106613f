package scheduler_test

import (
	"context"
	"roombook/infras/scheduler"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsImmediately(t *testing.T) {
	sched, err := scheduler.New()
	require.NoError(t, err)

	var runs atomic.Int32

	require.NoError(t, sched.Every("reminders", time.Hour, func(_ context.Context) {
		runs.Add(1)
	}))

	sched.Start()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, sched.Shutdown())
}

func TestShutdownCancelsTaskContext(t *testing.T) {
	sched, err := scheduler.New()
	require.NoError(t, err)

	started := make(chan struct{})
	finished := make(chan struct{})

	require.NoError(t, sched.Every("blocking", time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(finished)
	}))

	sched.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, sched.Shutdown())

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestEveryRejectsInvalidInterval(t *testing.T) {
	sched, err := scheduler.New()
	require.NoError(t, err)

	defer func() { _ = sched.Shutdown() }()

	assert.Error(t, sched.Every("broken", 0, func(_ context.Context) {}))
}
