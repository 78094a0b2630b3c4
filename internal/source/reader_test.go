package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"blobcache/internal/pipe"
)

// drain reads the consumer end until a terminal state and returns the
// collected bytes and the terminal error.
func drain(t *testing.T, cons *pipe.Consumer) ([]byte, error) {
	t.Helper()
	var got []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		view, err := cons.BeginRead()
		if errors.Is(err, pipe.ErrWouldBlock) {
			if time.Now().After(deadline) {
				t.Fatalf("pipe never reached a terminal state")
			}
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			return got, err
		}
		got = append(got, view...)
		if err := cons.EndRead(len(view)); err != nil {
			t.Fatalf("EndRead: %v", err)
		}
	}
}

func waitComplete(t *testing.T, ch chan completion) completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("source never completed")
		return completion{}
	}
}

type completion struct {
	status Status
	total  uint64
}

func TestReaderSourceProducesAll(t *testing.T) {
	data := bytes.Repeat([]byte("stream"), 10000)
	prod, cons, err := pipe.New(pipe.Capacity(int64(len(data))))
	if err != nil {
		t.Fatalf("pipe.New: %v", err)
	}

	src := NewReaderSource(bytes.NewReader(data))
	ch := make(chan completion, 1)
	src.Produce(context.Background(), prod, func(status Status, total uint64) {
		ch <- completion{status, total}
	})

	got, terminal := drain(t, cons)
	if !errors.Is(terminal, io.EOF) {
		t.Fatalf("terminal = %v, want io.EOF", terminal)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("drained %d bytes, content mismatch", len(got))
	}

	c := waitComplete(t, ch)
	if c.status != StatusOK {
		t.Fatalf("status = %s, want ok", c.status)
	}
	if c.total != uint64(len(data)) {
		t.Fatalf("total = %d, want %d", c.total, len(data))
	}
}

type failingReader struct {
	data []byte
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestReaderSourceReportsFailure(t *testing.T) {
	readErr := errors.New("device gone")
	prod, cons, err := pipe.New(pipe.MinCapacity)
	if err != nil {
		t.Fatalf("pipe.New: %v", err)
	}

	src := NewReaderSource(&failingReader{data: []byte("partial"), err: readErr})
	ch := make(chan completion, 1)
	src.Produce(context.Background(), prod, func(status Status, total uint64) {
		ch <- completion{status, total}
	})

	got, terminal := drain(t, cons)
	if !errors.Is(terminal, readErr) {
		t.Fatalf("terminal = %v, want the reader's error", terminal)
	}
	if string(got) != "partial" {
		t.Fatalf("drained %q before failure, want %q", got, "partial")
	}

	c := waitComplete(t, ch)
	if c.status != StatusFailed {
		t.Fatalf("status = %s, want failed", c.status)
	}
}
