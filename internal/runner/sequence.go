package runner

import (
	"fmt"
	"sync"

	"blobcache/internal/core/logger"
)

const sequenceQueueSize = 64

// SequenceOption is an option for a sequence.
type SequenceOption func(*Sequence)

// WithSequenceLogger is an option for a sequence to set the logger.
func WithSequenceLogger(logger *logger.Logger) SequenceOption {
	return func(s *Sequence) {
		s.logger = logger
	}
}

// WithSequenceQueueSize is an option for a sequence to set the size of the
// task queue.
func WithSequenceQueueSize(size int) SequenceOption {
	return func(s *Sequence) {
		s.tasks = make(chan func(), size)
	}
}

// Sequence runs posted functions one at a time on a single goroutine.
// Functions posted from any goroutine execute non-overlapping, in order,
// so state owned by a sequence needs no locking.
type Sequence struct {
	logger *logger.Logger
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
}

// NewSequence creates a sequence and starts its goroutine.
func NewSequence(name string, opts ...SequenceOption) *Sequence {
	s := &Sequence{
		logger: logger.NewLogger(logger.WithName(name)),
		tasks:  make(chan func(), sequenceQueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

func (s *Sequence) loop() {
	for {
		select {
		case <-s.done:
			s.logger.Debug("sequence closed, exiting")
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

// Post enqueues fn for execution on the sequence. It blocks while the
// queue is full and returns an error once the sequence is closed.
func (s *Sequence) Post(fn func()) error {
	select {
	case <-s.done:
		return fmt.Errorf("sequence is closed")
	default:
	}
	select {
	case <-s.done:
		return fmt.Errorf("sequence is closed")
	case s.tasks <- fn:
		return nil
	}
}

// Close stops the sequence. Queued tasks that have not started are
// dropped.
func (s *Sequence) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Logger returns the logger of the sequence.
func (s *Sequence) Logger() *logger.Logger {
	return s.logger
}
