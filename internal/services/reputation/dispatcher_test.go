package reputation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recalcFunc func(ctx context.Context, userID string) (Profile, error)

func (f recalcFunc) Recalculate(ctx context.Context, userID string) (Profile, error) {
	return f(ctx, userID)
}

type recorderStub struct {
	mu      sync.Mutex
	results []string
	dropped int
}

func (r *recorderStub) ReputationRecompute(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recorderStub) ReputationDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func TestDispatcherRunsScheduledTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	calc := recalcFunc(func(_ context.Context, userID string) (Profile, error) {
		mu.Lock()
		defer mu.Unlock()
		seen[userID]++
		return Profile{Level: 1}, nil
	})

	d := NewDispatcher(calc, DispatcherConfig{Workers: 2, QueueSize: 8}, nil, nil)
	d.Schedule("a")
	d.Schedule("b")
	d.Schedule("a")
	d.Close()

	if seen["a"] != 2 || seen["b"] != 1 {
		t.Fatalf("unexpected recompute calls: %v", seen)
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	calc := recalcFunc(func(context.Context, string) (Profile, error) {
		if calls.Add(1) < 3 {
			return Profile{}, errors.New("temporary")
		}
		return Profile{}, nil
	})
	rec := &recorderStub{}

	d := NewDispatcher(calc, DispatcherConfig{Workers: 1, QueueSize: 1, MaxRetries: 3, TaskTimeout: 5 * time.Second}, rec, nil)
	d.Schedule("a")
	d.Close()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(rec.results) != 1 || rec.results[0] != "ok" {
		t.Fatalf("unexpected results: %v", rec.results)
	}
}

func TestDispatcherSwallowsFailuresAndPanics(t *testing.T) {
	calc := recalcFunc(func(_ context.Context, userID string) (Profile, error) {
		if userID == "boom" {
			panic("calculator exploded")
		}
		return Profile{}, errors.New("store down")
	})
	rec := &recorderStub{}

	d := NewDispatcher(calc, DispatcherConfig{Workers: 1, QueueSize: 4, MaxRetries: 0}, rec, nil)
	d.Schedule("boom")
	d.Schedule("x")
	d.Close()

	if len(rec.results) != 2 || rec.results[0] != "error" || rec.results[1] != "error" {
		t.Fatalf("expected both failures to be recorded and swallowed, got %v", rec.results)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	calc := recalcFunc(func(context.Context, string) (Profile, error) {
		once.Do(func() { close(started) })
		<-release
		return Profile{}, nil
	})
	rec := &recorderStub{}

	d := NewDispatcher(calc, DispatcherConfig{Workers: 1, QueueSize: 1, TaskTimeout: 5 * time.Second}, rec, nil)
	d.Schedule("first")
	<-started

	d.Schedule("queued")
	done := make(chan struct{})
	go func() {
		d.Schedule("dropped")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("schedule must not block on a full queue")
	}

	close(release)
	d.Close()

	if rec.dropped != 1 {
		t.Fatalf("expected one dropped task, got %d", rec.dropped)
	}
	if len(rec.results) != 2 {
		t.Fatalf("expected two completed tasks, got %v", rec.results)
	}
}

func TestScheduleAfterCloseIsIgnored(t *testing.T) {
	d := NewDispatcher(recalcFunc(func(context.Context, string) (Profile, error) {
		t.Fatalf("no task expected after close")
		return Profile{}, nil
	}), DispatcherConfig{Workers: 1}, nil, nil)
	d.Close()
	d.Schedule("late")
	d.Close()
}
