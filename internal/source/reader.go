package source

import (
	"context"
	"io"

	"blobcache/internal/pipe"
	"blobcache/internal/transfer"
)

// ReaderSource streams an io.Reader into the pipe through the
// rate-limited copier.
type ReaderSource struct {
	reader io.Reader
	copier *transfer.Copier
}

// NewReaderSource wraps r. Transfer options control rate limiting and
// progress callbacks.
func NewReaderSource(r io.Reader, opts ...transfer.Option) *ReaderSource {
	return &ReaderSource{
		reader: r,
		copier: transfer.NewCopier(opts...),
	}
}

// Produce implements Source.
func (s *ReaderSource) Produce(ctx context.Context, prod *pipe.Producer, complete CompleteFunc) {
	go func() {
		n, err := s.copier.Copy(ctx, prod, s.reader)
		if closer, ok := s.reader.(io.Closer); ok {
			closer.Close()
		}
		if err != nil {
			prod.CloseWithError(err)
			complete(StatusFailed, uint64(n))
			return
		}
		prod.Close()
		complete(StatusOK, uint64(n))
	}()
}
