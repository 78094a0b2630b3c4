// Package pipe implements a bounded single-producer single-consumer byte
// pipe. The producer side blocks for backpressure; the consumer side is
// non-blocking and exposes zero-copy views with an explicit readability
// watch, so it can be driven from an event loop.
package pipe

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// MinCapacity is the smallest pipe buffer allocated regardless of the
	// size hint.
	MinCapacity = 64 * 1024

	// MaxCapacity bounds the pipe buffer regardless of blob size.
	MaxCapacity = 512 * 1024
)

var (
	// ErrWouldBlock is returned by BeginRead when no bytes are buffered
	// but the producer is still open.
	ErrWouldBlock = errors.New("pipe: no data available")

	// ErrClosed is returned by producer writes after the consumer end has
	// been closed.
	ErrClosed = errors.New("pipe: closed by consumer")

	// ErrReadPending is returned by BeginRead while a previous view has
	// not been released with EndRead.
	ErrReadPending = errors.New("pipe: read already pending")
)

// Capacity clamps a producer-declared size hint to the allowed buffer
// range.
func Capacity(sizeHint int64) int {
	if sizeHint < MinCapacity {
		return MinCapacity
	}
	if sizeHint > MaxCapacity {
		return MaxCapacity
	}
	return int(sizeHint)
}

// pipe is the state shared by both ends. A ring buffer over buf:
// readPos is the consumer cursor and length the readable byte count.
type pipe struct {
	mu    sync.Mutex
	space *sync.Cond

	buf     []byte
	readPos int
	length  int

	viewLen int
	reading bool

	prodClosed bool
	prodErr    error
	consClosed bool

	watch func()
	armed bool
}

// New creates a pipe with the given buffer capacity.
func New(capacity int) (*Producer, *Consumer, error) {
	if capacity <= 0 {
		return nil, nil, fmt.Errorf("pipe: invalid capacity %d", capacity)
	}
	p := &pipe{buf: make([]byte, capacity)}
	p.space = sync.NewCond(&p.mu)
	return &Producer{p: p}, &Consumer{p: p}, nil
}

// notifyLocked fires the armed watch callback if the consumer has
// something to observe. The callback is invoked outside the lock.
func (p *pipe) notifyLocked() func() {
	if !p.armed || p.watch == nil {
		return nil
	}
	if p.length == 0 && !p.prodClosed {
		return nil
	}
	p.armed = false
	return p.watch
}

// Producer is the writable end of the pipe.
type Producer struct {
	p *pipe
}

// Write appends p to the pipe, blocking while the buffer is full. It
// returns ErrClosed if the consumer end has been closed.
func (w *Producer) Write(data []byte) (int, error) {
	p := w.p
	p.mu.Lock()

	written := 0
	for written < len(data) {
		if p.consClosed {
			p.mu.Unlock()
			return written, ErrClosed
		}
		free := len(p.buf) - p.length
		if free == 0 {
			p.space.Wait()
			continue
		}

		n := min(free, len(data)-written)
		writePos := (p.readPos + p.length) % len(p.buf)
		contiguous := min(n, len(p.buf)-writePos)
		copy(p.buf[writePos:], data[written:written+contiguous])
		if contiguous < n {
			copy(p.buf, data[written+contiguous:written+n])
		}
		p.length += n
		written += n

		if notify := p.notifyLocked(); notify != nil {
			p.mu.Unlock()
			notify()
			p.mu.Lock()
		}
	}

	p.mu.Unlock()
	return written, nil
}

// Close marks a clean end-of-stream. Buffered bytes remain readable.
func (w *Producer) Close() error {
	return w.close(nil)
}

// CloseWithError marks the stream as failed. The consumer observes err
// once the buffered bytes are drained.
func (w *Producer) CloseWithError(err error) error {
	return w.close(err)
}

func (w *Producer) close(err error) error {
	p := w.p
	p.mu.Lock()
	if !p.prodClosed {
		p.prodClosed = true
		p.prodErr = err
	}
	notify := p.notifyLocked()
	p.mu.Unlock()
	if notify != nil {
		notify()
	}
	return nil
}

// Consumer is the readable end of the pipe.
type Consumer struct {
	p *pipe
}

// BeginRead returns a zero-copy view of the contiguous readable bytes.
// It returns ErrWouldBlock when the pipe is empty but still open, io.EOF
// once a cleanly closed pipe is fully drained, or the producer's close
// error. The view stays valid until EndRead.
func (r *Consumer) BeginRead() ([]byte, error) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reading {
		return nil, ErrReadPending
	}
	if p.length == 0 {
		if p.prodClosed {
			if p.prodErr != nil {
				return nil, p.prodErr
			}
			return nil, io.EOF
		}
		return nil, ErrWouldBlock
	}

	contiguous := min(p.length, len(p.buf)-p.readPos)
	p.reading = true
	p.viewLen = contiguous
	return p.buf[p.readPos : p.readPos+contiguous], nil
}

// EndRead releases the current view, consuming n bytes of it.
func (r *Consumer) EndRead(n int) error {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.reading {
		return errors.New("pipe: no read pending")
	}
	if n < 0 || n > p.viewLen {
		return fmt.Errorf("pipe: invalid consumed count %d (view %d)", n, p.viewLen)
	}
	p.readPos = (p.readPos + n) % len(p.buf)
	p.length -= n
	p.reading = false
	p.viewLen = 0
	p.space.Broadcast()
	return nil
}

// Watch registers the readability callback. The callback fires at most
// once per Arm, from the goroutine that made the pipe readable, and must
// not call back into the consumer synchronously.
func (r *Consumer) Watch(notify func()) {
	p := r.p
	p.mu.Lock()
	p.watch = notify
	p.mu.Unlock()
}

// Arm re-arms the readability watch. If the pipe is already readable or
// terminal the callback fires immediately.
func (r *Consumer) Arm() {
	p := r.p
	p.mu.Lock()
	p.armed = true
	notify := p.notifyLocked()
	p.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Close releases the consumer end. Blocked producer writes fail with
// ErrClosed.
func (r *Consumer) Close() error {
	p := r.p
	p.mu.Lock()
	p.consClosed = true
	p.armed = false
	p.reading = false
	p.viewLen = 0
	p.space.Broadcast()
	p.mu.Unlock()
	return nil
}
