package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/discord/commands/poll"
)

type sweeperFunc func(ctx context.Context) (poll.SweepResult, error)

func (f sweeperFunc) Sweep(ctx context.Context) (poll.SweepResult, error) { return f(ctx) }

func TestScheduledSweepRuns(t *testing.T) {
	router := NewRouter(newTestConfig())
	t.Cleanup(router.Close)

	var sweeps int32
	ad := NewPollAdapters(router, sweeperFunc(func(context.Context) (poll.SweepResult, error) {
		atomic.AddInt32(&sweeps, 1)
		return poll.SweepResult{Closed: 1}, nil
	}))
	cancel := ad.ScheduleSweep(10 * time.Millisecond)
	defer cancel()

	deadline := time.After(300 * time.Millisecond)
	for atomic.LoadInt32(&sweeps) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated sweeps, got %d", atomic.LoadInt32(&sweeps))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFailedSweepWaitsForNextTick(t *testing.T) {
	router := NewRouter(newTestConfig())
	t.Cleanup(router.Close)

	var sweeps int32
	ad := NewPollAdapters(router, sweeperFunc(func(context.Context) (poll.SweepResult, error) {
		atomic.AddInt32(&sweeps, 1)
		return poll.SweepResult{}, errors.New("store offline")
	}))
	if err := ad.EnqueueSweep(context.Background()); err != nil {
		t.Fatalf("EnqueueSweep: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&sweeps); n != 1 {
		t.Fatalf("sweep ran %d times, want 1", n)
	}
}

func TestEnqueueSweepWhileSweeping(t *testing.T) {
	router := NewRouter(newTestConfig())
	t.Cleanup(router.Close)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	ad := NewPollAdapters(router, sweeperFunc(func(context.Context) (poll.SweepResult, error) {
		started <- struct{}{}
		<-release
		return poll.SweepResult{Closed: 1}, nil
	}))
	defer close(release)

	if err := ad.EnqueueSweep(context.Background()); err != nil {
		t.Fatalf("EnqueueSweep: %v", err)
	}
	waitFor(t, started, "sweep")
	if err := ad.EnqueueSweep(context.Background()); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("overlapping EnqueueSweep = %v, want ErrDuplicateTask", err)
	}
}
