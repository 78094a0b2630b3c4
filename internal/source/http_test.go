package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"blobcache/internal/pipe"
)

func TestHTTPSourceProducesBody(t *testing.T) {
	payload := bytes.Repeat([]byte("origin-bytes"), 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	prod, cons, err := pipe.New(pipe.MaxCapacity)
	if err != nil {
		t.Fatalf("pipe.New: %v", err)
	}

	src := NewHTTPSource(srv.URL)
	ch := make(chan completion, 1)
	src.Produce(context.Background(), prod, func(status Status, total uint64) {
		ch <- completion{status, total}
	})

	got, terminal := drain(t, cons)
	if !errors.Is(terminal, io.EOF) {
		t.Fatalf("terminal = %v, want io.EOF", terminal)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("drained %d bytes, want %d", len(got), len(payload))
	}

	c := waitComplete(t, ch)
	if c.status != StatusOK {
		t.Fatalf("status = %s, want ok", c.status)
	}
	if c.total != uint64(len(payload)) {
		t.Fatalf("total = %d, want %d", c.total, len(payload))
	}
}

func TestHTTPSourceReportsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	prod, cons, err := pipe.New(pipe.MinCapacity)
	if err != nil {
		t.Fatalf("pipe.New: %v", err)
	}

	src := NewHTTPSource(srv.URL + "/missing")
	ch := make(chan completion, 1)
	src.Produce(context.Background(), prod, func(status Status, total uint64) {
		ch <- completion{status, total}
	})

	if _, terminal := drain(t, cons); terminal == nil || errors.Is(terminal, io.EOF) {
		t.Fatalf("terminal = %v, want a status error", terminal)
	}

	if c := waitComplete(t, ch); c.status != StatusFailed {
		t.Fatalf("status = %s, want failed", c.status)
	}
}

func TestHTTPSourceSize(t *testing.T) {
	payload := []byte("sized payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "13")
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	size, err := src.Size(context.Background())
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", size, len(payload))
	}
}

func TestHTTPSourceSendsHeaders(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	prod, cons, err := pipe.New(pipe.MinCapacity)
	if err != nil {
		t.Fatalf("pipe.New: %v", err)
	}

	src := NewHTTPSource(srv.URL, HTTPWithHeaders(map[string]string{"Authorization": "Bearer token"}))
	ch := make(chan completion, 1)
	src.Produce(context.Background(), prod, func(status Status, total uint64) {
		ch <- completion{status, total}
	})

	drain(t, cons)
	waitComplete(t, ch)

	if got != "Bearer token" {
		t.Fatalf("Authorization header = %q", got)
	}
}
