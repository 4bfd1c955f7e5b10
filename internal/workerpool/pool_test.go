package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
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
	t.Fatal("condition not met before deadline")
}

func TestPool_RunsTasks(t *testing.T) {
	p := New(Config{Name: "test", MaxWorkers: 4, QueueSize: 16})
	defer p.Stop(time.Second)

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(Task{ID: "t", Fn: func(context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if ran.Load() != 10 {
		t.Fatalf("ran = %d, want 10", ran.Load())
	}
	waitFor(t, func() bool { return p.Stats().CompletedTasks == 10 })
}

func TestPool_CountsFailuresAndPanics(t *testing.T) {
	p := New(Config{Name: "test", MaxWorkers: 1, QueueSize: 4})
	defer p.Stop(time.Second)

	_ = p.Submit(Task{ID: "err", Fn: func(context.Context) error { return errors.New("boom") }})
	_ = p.Submit(Task{ID: "panic", Fn: func(context.Context) error { panic("oops") }})
	_ = p.Submit(Task{ID: "ok", Fn: func(context.Context) error { return nil }})

	waitFor(t, func() bool {
		s := p.Stats()
		return s.FailedTasks == 2 && s.CompletedTasks == 1
	})
}

func TestPool_QueueFull(t *testing.T) {
	p := New(Config{Name: "test", MaxWorkers: 1, QueueSize: 1})
	defer p.Stop(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	block := Task{ID: "block", Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	if err := p.Submit(block); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	noop := Task{ID: "noop", Fn: func(context.Context) error { return nil }}
	if err := p.Submit(noop); err != nil {
		t.Fatalf("Submit into free slot: %v", err)
	}
	if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.SubmitWithin(20*time.Millisecond, noop); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := p.Stats().RejectedTasks; got != 2 {
		t.Fatalf("RejectedTasks = %d, want 2", got)
	}
	close(release)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := New(Config{Name: "test", MaxWorkers: 1, QueueSize: 1})
	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	err := p.Submit(Task{Fn: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	// Stop is idempotent.
	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStats_QueueUtilization(t *testing.T) {
	if got := (Stats{QueueSize: 4, QueuedTasks: 1}).QueueUtilization(); got != 25 {
		t.Fatalf("QueueUtilization = %v, want 25", got)
	}
	if got := (Stats{}).QueueUtilization(); got != 0 {
		t.Fatalf("QueueUtilization = %v, want 0", got)
	}
}
