package transport

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/net/http2"
)

// DefaultHTTPClient returns a client with HTTP/2 enabled for HTTPS
// origins.
func DefaultHTTPClient() *http.Client {
	transport := &http.Transport{}
	// Ignore the error: it only fires if the transport was already
	// configured for http2.
	_ = http2.ConfigureTransport(transport)
	return &http.Client{Transport: transport}
}

type HTTPOption func(*HTTPTransfer)

func HTTPWithClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransfer) {
		t.client = c
	}
}

// HTTPTransfer issues requests and hands the response to a callback so
// bodies can be streamed rather than buffered.
type HTTPTransfer struct {
	client *http.Client
}

func NewHTTPTransfer(opts ...HTTPOption) *HTTPTransfer {
	t := &HTTPTransfer{client: DefaultHTTPClient()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type RequestOption func(*http.Request)

func WithHeaders(h map[string]string) RequestOption {
	return func(req *http.Request) {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}
}

func WithRange(start, end int64) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	}
}

// ResponseCallback consumes a response. The callback owns the body and
// must close it.
type ResponseCallback func(*http.Response) error

func (t *HTTPTransfer) Do(ctx context.Context, method, url string, respCb ResponseCallback, reqOpts ...RequestOption) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	for _, opt := range reqOpts {
		opt(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	return respCb(resp)
}

func (t *HTTPTransfer) Get(ctx context.Context, url string, respCb ResponseCallback, reqOpts ...RequestOption) error {
	return t.Do(ctx, http.MethodGet, url, respCb, reqOpts...)
}

func (t *HTTPTransfer) Head(ctx context.Context, url string, respCb ResponseCallback, reqOpts ...RequestOption) error {
	return t.Do(ctx, http.MethodHead, url, respCb, reqOpts...)
}
