package source

import (
	"context"

	"blobcache/internal/pipe"
	"blobcache/internal/transfer"
	"blobcache/internal/transport"
)

type S3Option func(*S3Source)

func S3WithTransferOptions(opts ...transfer.Option) S3Option {
	return func(s *S3Source) {
		s.copier = transfer.NewCopier(opts...)
	}
}

// S3Source streams an object from S3-compatible storage into the pipe.
type S3Source struct {
	transfer *transport.S3Transfer
	bucket   string
	key      string
	copier   *transfer.Copier
}

func NewS3Source(t *transport.S3Transfer, bucket, key string, opts ...S3Option) *S3Source {
	s := &S3Source{
		transfer: t,
		bucket:   bucket,
		key:      key,
		copier:   transfer.NewCopier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the object's declared size.
func (s *S3Source) Size(ctx context.Context) (int64, error) {
	return s.transfer.ObjectSize(ctx, s.bucket, s.key)
}

// Produce implements Source.
func (s *S3Source) Produce(ctx context.Context, prod *pipe.Producer, complete CompleteFunc) {
	go func() {
		body, _, err := s.transfer.OpenObject(ctx, s.bucket, s.key)
		if err != nil {
			prod.CloseWithError(err)
			complete(StatusFailed, 0)
			return
		}
		defer body.Close()

		n, err := s.copier.Copy(ctx, prod, body)
		if err != nil {
			prod.CloseWithError(err)
			complete(StatusFailed, uint64(n))
			return
		}
		prod.Close()
		complete(StatusOK, uint64(n))
	}()
}
