// Package source provides byte sources: asynchronous producers that
// stream a blob into the writable end of a pipe and report completion
// exactly once, independently of pipe closure.
package source

import (
	"context"

	"blobcache/internal/pipe"
)

// Status is the terminal status a source reports.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "failed"
}

// CompleteFunc receives the source's one-shot completion report: the
// terminal status and the total number of bytes produced into the pipe.
// It may fire before the consumer has drained the pipe.
type CompleteFunc func(status Status, totalBytes uint64)

// Source produces a byte stream into the producer end of a pipe.
type Source interface {
	// Produce starts producing into prod on the source's own goroutine.
	// The source closes prod when it stops (cleanly or with an error) and
	// invokes complete exactly once. Produce itself returns immediately.
	Produce(ctx context.Context, prod *pipe.Producer, complete CompleteFunc)
}
