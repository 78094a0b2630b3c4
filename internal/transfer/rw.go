package transfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Callback is invoked with the byte count after each read or write.
// These are hot paths so don't block in the callback.
type Callback func(n int64)

type Option func(*Copier)

func WithReadLimiter(limiter *rate.Limiter) Option {
	return func(c *Copier) {
		c.limiter = limiter
	}
}

func WithProgressCallback(callback Callback) Option {
	return func(c *Copier) {
		c.progress = callback
	}
}

// Copier streams bytes from a reader into a writer with context
// cancellation, rate limiting and progress callbacks. Sources use it to
// feed the producer end of a pipe.
type Copier struct {
	limiter  *rate.Limiter
	progress Callback
}

// NewCopier creates a new Copier.
func NewCopier(opts ...Option) *Copier {
	c := &Copier{
		limiter: DefaultRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy transfers data from reader to writer until EOF or error and
// returns the number of bytes written.
func (c *Copier) Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, c.reader(ctx, src))
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// reader wraps src with cancellation, throttling and the progress
// callback.
func (c *Copier) reader(ctx context.Context, src io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		if c.limiter != nil {
			if err := c.limiter.WaitN(ctx, len(p)); err != nil {
				return 0, err
			}
		}
		n, err := src.Read(p)
		if n > 0 && c.progress != nil {
			c.progress(int64(n))
		}
		return n, err
	})
}
