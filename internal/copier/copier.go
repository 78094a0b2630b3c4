// Package copier streams a blob from an asynchronous byte source through
// a bounded pipe into one stream of a disk cache entry. The copy is a
// read-then-write pump: at most one pipe read and one storage write are
// in flight at any time, and all state transitions run on a single
// sequence.
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"blobcache/internal/core/logger"
	"blobcache/internal/pipe"
	"blobcache/internal/quota"
	"blobcache/internal/runner"
	"blobcache/internal/source"
	"blobcache/internal/storage"
)

// ChunkSize bounds the bytes handed to a single storage write,
// independent of the pipe capacity hint.
const ChunkSize = 512 * 1024

// DoneFunc receives the finished transfer's entry and outcome. It is
// invoked exactly once per transfer, on the copier's sequence. The entry
// is handed back regardless of outcome; on failure the written stream is
// invalid and the entry should be discarded.
type DoneFunc func(entry storage.Entry, success bool)

// PipeFactory creates the transfer pipe with the given capacity.
type PipeFactory func(capacity int) (*pipe.Producer, *pipe.Consumer, error)

type Option func(*Copier)

func WithLogger(logger *logger.Logger) Option {
	return func(c *Copier) {
		c.logger = logger
	}
}

// WithOrigin sets the origin reported to the usage tracker on write
// failure.
func WithOrigin(origin string) Option {
	return func(c *Copier) {
		c.origin = origin
	}
}

// WithPipeFactory overrides pipe creation.
func WithPipeFactory(factory PipeFactory) Option {
	return func(c *Copier) {
		c.newPipe = factory
	}
}

// transferState holds everything owned by one active transfer. Touched
// only on the copier's sequence; stale callbacks from a finished
// transfer compare against the current state and become no-ops.
type transferState struct {
	entry       storage.Entry
	stream      int
	offset      int64
	consumer    *pipe.Consumer
	pendingRead bool
	consumed    int
	srcDone     bool
	declared    uint64
	pipeClosed  bool
	done        DoneFunc
}

// Copier drives a single transfer at a time.
type Copier struct {
	seq     *runner.Sequence
	usage   quota.UsageTracker
	logger  *logger.Logger
	origin  string
	newPipe PipeFactory

	active atomic.Bool
	cur    *transferState
}

// NewCopier creates a copier whose callbacks run on seq. Write failures
// are reported to usage.
func NewCopier(seq *runner.Sequence, usage quota.UsageTracker, opts ...Option) *Copier {
	c := &Copier{
		seq:     seq,
		usage:   usage,
		logger:  logger.NewLogger(logger.WithName("copier")),
		origin:  "local",
		newPipe: pipe.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transfer streams src into the given stream of entry. sizeHint sizes
// the pipe buffer; it does not have to be accurate. done fires exactly
// once with the entry and the outcome. A transfer succeeds only if the
// pipe closed cleanly, the source reported success, and the committed
// byte count matches the source's declared total.
//
// Pipe setup failure delivers done(entry, false) before Transfer
// returns, without starting the source.
func (c *Copier) Transfer(ctx context.Context, entry storage.Entry, stream int, src source.Source, sizeHint int64, done DoneFunc) error {
	if entry == nil {
		return fmt.Errorf("copier: nil entry")
	}
	if stream < 0 {
		return fmt.Errorf("copier: invalid stream index %d", stream)
	}
	if src == nil {
		return fmt.Errorf("copier: nil source")
	}
	if done == nil {
		return fmt.Errorf("copier: nil done callback")
	}
	if !c.active.CompareAndSwap(false, true) {
		return fmt.Errorf("copier: transfer already in progress")
	}

	prod, cons, err := c.newPipe(pipe.Capacity(sizeHint))
	if err != nil {
		c.logger.Error("failed to create transfer pipe", "error", err)
		c.active.Store(false)
		done(entry, false)
		return nil
	}

	t := &transferState{
		entry:    entry,
		stream:   stream,
		consumer: cons,
		done:     done,
	}

	err = c.seq.Post(func() {
		c.cur = t
		cons.Watch(func() {
			c.post(t, func() { c.pump(t) })
		})
		src.Produce(ctx, prod, func(status source.Status, total uint64) {
			c.post(t, func() { c.onSourceComplete(t, status, total) })
		})
		c.pump(t)
	})
	if err != nil {
		cons.Close()
		c.active.Store(false)
		done(entry, false)
	}
	return nil
}

// post schedules fn on the sequence, dropping it if the transfer it
// belongs to has already finished.
func (c *Copier) post(t *transferState, fn func()) {
	c.seq.Post(func() {
		if c.cur != t {
			return
		}
		fn()
	})
}

// pump is re-entered on every readability signal and after every
// completed write. Single-flight: one read view, one write.
func (c *Copier) pump(t *transferState) {
	// Release the view pinned by the write that just completed. This
	// advances the pipe's consumer cursor and unblocks the producer.
	if t.pendingRead {
		if err := t.consumer.EndRead(t.consumed); err != nil {
			c.finish(t, false)
			return
		}
		t.pendingRead = false
		t.consumed = 0
	}

	view, err := t.consumer.BeginRead()
	switch {
	case errors.Is(err, pipe.ErrWouldBlock):
		t.consumer.Arm()
		return
	case errors.Is(err, io.EOF):
		// Drained and cleanly closed. Success can only be judged once
		// the source has reported its total.
		t.pipeClosed = true
		if t.srcDone {
			c.finish(t, uint64(t.offset) == t.declared)
		}
		return
	case err != nil:
		c.logger.Debug("pipe read failed", "error", err)
		c.finish(t, false)
		return
	}

	n := min(ChunkSize, len(view))
	t.pendingRead = true
	t.consumed = n
	t.entry.WriteRange(t.stream, t.offset, view[:n], true, func(written int, err error) {
		c.post(t, func() { c.didWrite(t, n, written, err) })
	})
}

func (c *Copier) didWrite(t *transferState, expected, written int, err error) {
	if err != nil || written != expected {
		c.logger.Debug("storage write failed",
			"offset", t.offset, "expected", expected, "written", written, "error", err)
		c.usage.NotifyWriteFailed(c.origin)
		c.finish(t, false)
		return
	}
	t.offset += int64(written)
	c.pump(t)
}

// onSourceComplete handles the source's one-shot report. It can arrive
// before, during, or after the pipe reports end-of-stream.
func (c *Copier) onSourceComplete(t *transferState, status source.Status, total uint64) {
	if status != source.StatusOK {
		c.finish(t, false)
		return
	}
	t.srcDone = true
	t.declared = total
	if t.pipeClosed {
		c.finish(t, uint64(t.offset) == t.declared)
	}
}

// finish delivers the outcome exactly once and tears the transfer down.
func (c *Copier) finish(t *transferState, success bool) {
	c.cur = nil
	t.consumer.Close()
	c.active.Store(false)
	c.logger.Debug("transfer finished",
		"entry", t.entry.Key(), "stream", t.stream, "bytes", t.offset, "success", success)
	t.done(t.entry, success)
}

// Close cancels any in-flight transfer. The completion callback does not
// fire for a cancelled transfer; pending pipe and write callbacks become
// no-ops.
func (c *Copier) Close() {
	c.seq.Post(func() {
		if c.cur == nil {
			return
		}
		c.cur.consumer.Close()
		c.cur = nil
		c.active.Store(false)
	})
}
