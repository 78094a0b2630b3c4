package runner

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSequenceRunsInOrder(t *testing.T) {
	s := NewSequence("test")
	defer s.Close()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		if err := s.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	if err := s.Post(func() { close(done) }); err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sequence did not drain")
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("task order %v, want ascending", got)
		}
	}
}

func TestSequencePostAfterClose(t *testing.T) {
	s := NewSequence("test")
	s.Close()

	var ran atomic.Bool
	if err := s.Post(func() { ran.Store(true) }); err == nil {
		t.Fatalf("Post after Close should fail")
	}
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("task ran after close")
	}
}

func TestSequenceSerializesConcurrentPosts(t *testing.T) {
	s := NewSequence("test")
	defer s.Close()

	// Unsynchronized counter: only safe if tasks never overlap.
	var counter int
	done := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		go func() {
			s.Post(func() {
				counter++
				done <- struct{}{}
			})
		}()
	}
	for i := 0; i < 100; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("tasks did not complete")
		}
	}
	s.Post(func() {
		if counter != 100 {
			t.Errorf("counter = %d, want 100", counter)
		}
	})
}
