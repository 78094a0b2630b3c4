package source

import (
	"context"
	"fmt"
	"net/http"

	"blobcache/internal/pipe"
	"blobcache/internal/transfer"
	"blobcache/internal/transport"
)

type HTTPOption func(*HTTPSource)

func HTTPWithTransfer(t *transport.HTTPTransfer) HTTPOption {
	return func(s *HTTPSource) {
		s.transfer = t
	}
}

func HTTPWithHeaders(headers map[string]string) HTTPOption {
	return func(s *HTTPSource) {
		s.headers = headers
	}
}

func HTTPWithTransferOptions(opts ...transfer.Option) HTTPOption {
	return func(s *HTTPSource) {
		s.copier = transfer.NewCopier(opts...)
	}
}

// HTTPSource streams the body of a GET request into the pipe.
type HTTPSource struct {
	url      string
	headers  map[string]string
	transfer *transport.HTTPTransfer
	copier   *transfer.Copier
}

func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url:      url,
		transfer: transport.NewHTTPTransfer(),
		copier:   transfer.NewCopier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size resolves the declared content length via a HEAD request. Returns
// -1 when the origin does not declare one.
func (s *HTTPSource) Size(ctx context.Context) (int64, error) {
	size := int64(-1)
	callback := func(resp *http.Response) error {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		size = resp.ContentLength
		return nil
	}
	err := s.transfer.Head(ctx, s.url, callback, s.requestOptions()...)
	return size, err
}

func (s *HTTPSource) requestOptions() []transport.RequestOption {
	if len(s.headers) == 0 {
		return nil
	}
	return []transport.RequestOption{transport.WithHeaders(s.headers)}
}

// Produce implements Source.
func (s *HTTPSource) Produce(ctx context.Context, prod *pipe.Producer, complete CompleteFunc) {
	go func() {
		var produced int64
		callback := func(resp *http.Response) error {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status: %s", resp.Status)
			}
			n, err := s.copier.Copy(ctx, prod, resp.Body)
			produced = n
			return err
		}

		err := s.transfer.Get(ctx, s.url, callback, s.requestOptions()...)
		if err != nil {
			prod.CloseWithError(err)
			complete(StatusFailed, uint64(produced))
			return
		}
		prod.Close()
		complete(StatusOK, uint64(produced))
	}()
}
