package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var ran []string

	pool := NewPool(ctx, "test-pool", WithPoolWorkers(3))

	jobCount := 5
	for i := 0; i < jobCount; i++ {
		name := string(rune('a' + i))
		job := NewJob(name, func(ctx context.Context, job *Job) error {
			mu.Lock()
			ran = append(ran, job.Name())
			mu.Unlock()
			return nil
		})
		if err := pool.Submit(job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	for i := 0; i < jobCount; i++ {
		job, err := pool.Wait()
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if !job.Tracker().IsSucceeded() {
			t.Fatalf("job %s status = %s, want succeeded", job.Name(), job.Tracker().Status())
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != jobCount {
		t.Fatalf("ran %d jobs, want %d", len(ran), jobCount)
	}
}

func TestPoolReportsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := NewPool(ctx, "test-pool", WithPoolWorkers(1))
	job := NewJob("failing", func(ctx context.Context, job *Job) error {
		return errors.New("transfer failed")
	})
	if err := pool.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	completed, err := pool.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !completed.Tracker().IsFailed() {
		t.Fatalf("status = %s, want failed", completed.Tracker().Status())
	}
}

func TestPoolRejectsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, "test-pool")
	cancel()
	time.Sleep(10 * time.Millisecond)

	job := NewJob("late", func(ctx context.Context, job *Job) error { return nil })
	if err := pool.Submit(job); err == nil {
		t.Fatalf("Submit after cancel should fail")
	}
}

func TestJobCallbackAndProgress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	callbackRan := make(chan struct{})
	job := NewJob("tracked", func(ctx context.Context, job *Job) error {
		job.Tracker().SetTotal(100)
		job.Tracker().IncCurrent(100)
		return nil
	}, WithJobCallback(func(ctx context.Context, job *Job) {
		close(callbackRan)
	}))

	pool := NewPool(ctx, "test-pool", WithPoolWorkers(1))
	if err := pool.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	completed, err := pool.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	select {
	case <-callbackRan:
	case <-time.After(time.Second):
		t.Fatalf("job callback never ran")
	}
	if completed.Tracker().Current() != 100 {
		t.Fatalf("tracker current = %d, want 100", completed.Tracker().Current())
	}
	if completed.Tracker().Progress() != 1 {
		t.Fatalf("tracker progress = %f, want 1", completed.Tracker().Progress())
	}
}

func TestJobCannotRunTwice(t *testing.T) {
	job := NewJob("once", func(ctx context.Context, job *Job) error { return nil })
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail")
	}
}
