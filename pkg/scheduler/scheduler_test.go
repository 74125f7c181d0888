package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xhad/scribe/pkg/scheduler"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestJobsRunEveryTick(t *testing.T) {
	var runs int64
	c := scheduler.NewWithConfig(scheduler.CoordinatorConfig{Interval: 10 * time.Millisecond})
	c.Register(scheduler.Job{Name: "counter", Run: func(context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	waitFor(t, func() bool { return atomic.LoadInt64(&runs) >= 3 })
}

func TestFailingJobDoesNotBlockOthers(t *testing.T) {
	var generalTicks, supportTicks int64
	c := scheduler.NewWithConfig(scheduler.CoordinatorConfig{Interval: 10 * time.Millisecond})
	c.Register(scheduler.Job{Name: "general-summary", Run: func(context.Context) error {
		atomic.AddInt64(&generalTicks, 1)
		return errors.New("forced failure")
	}})
	c.Register(scheduler.Job{Name: "support-summary", Run: func(context.Context) error {
		atomic.AddInt64(&supportTicks, 1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	// the failing job keeps running and never suppresses its sibling
	waitFor(t, func() bool {
		return atomic.LoadInt64(&generalTicks) >= 2 && atomic.LoadInt64(&supportTicks) >= 2
	})
}

func TestPanickingJobIsContained(t *testing.T) {
	var after int64
	c := scheduler.NewWithConfig(scheduler.CoordinatorConfig{Interval: 10 * time.Millisecond})
	c.Register(scheduler.Job{Name: "bomb", Run: func(context.Context) error {
		panic("boom")
	}})
	c.Register(scheduler.Job{Name: "survivor", Run: func(context.Context) error {
		atomic.AddInt64(&after, 1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	waitFor(t, func() bool { return atomic.LoadInt64(&after) >= 2 })
}

func TestStopOnCancel(t *testing.T) {
	c := scheduler.NewWithConfig(scheduler.CoordinatorConfig{Interval: 5 * time.Millisecond})
	c.Register(scheduler.Job{Name: "noop", Run: func(context.Context) error { return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop")
	}
}
