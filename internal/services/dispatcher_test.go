package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDispatcherRunsJobsInOrder(t *testing.T) {
	d := NewDispatcher(logrus.New(), 16)
	d.Start()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.Enqueue(Job{
			Name: "ordered",
			Run: func(_ context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(order) != 5 {
		t.Fatalf("ran %d jobs, want 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want submission order", order)
		}
	}
}

func TestDispatcherJobFailureDoesNotStopWorker(t *testing.T) {
	d := NewDispatcher(logrus.New(), 16)
	d.Start()

	ran := make(chan struct{})
	d.Enqueue(Job{Name: "failing", Run: func(_ context.Context) error {
		return errors.New("boom")
	}})
	d.Enqueue(Job{Name: "after", Run: func(_ context.Context) error {
		close(ran)
		return nil
	}})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job after a failure never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// Worker never started, so the buffer fills up and the extra job
	// is dropped instead of blocking the caller.
	d := NewDispatcher(logrus.New(), 1)

	d.Enqueue(Job{Name: "first", Run: func(_ context.Context) error { return nil }})

	done := make(chan struct{})
	go func() {
		d.Enqueue(Job{Name: "overflow", Run: func(_ context.Context) error { return nil }})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestDispatcherEnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(logrus.New(), 4)
	d.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// A late submission is dropped, never a panic on the closed queue.
	ran := false
	d.Enqueue(Job{Name: "late", Run: func(_ context.Context) error {
		ran = true
		return nil
	}})
	if ran {
		t.Error("job enqueued after Stop must not run")
	}
}

func TestDispatcherStopTimeout(t *testing.T) {
	d := NewDispatcher(logrus.New(), 4)
	d.Start()

	release := make(chan struct{})
	d.Enqueue(Job{Name: "slow", Run: func(_ context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop error = %v, want deadline exceeded", err)
	}
	close(release)
}
