package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the service endpoint. pubproxy does not serve HTTPS.
const DefaultBaseURL = "http://pubproxy.com/api/proxy"

// maxResponseBytes bounds how much of a response body is read; real
// responses are a few kilobytes.
const maxResponseBytes = 1 << 20

// Response is a raw service reply: the status code and the undecoded body.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport issues one query against the service and returns its raw reply,
// or an error for network-level failures. Connection handling, TLS, and
// socket retries live behind this interface.
type Transport interface {
	Do(ctx context.Context, query url.Values) (*Response, error)
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport builds a transport against baseURL (DefaultBaseURL when
// empty) with the given per-request timeout.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPTransport{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Do performs one GET against the service.
func (t *HTTPTransport) Do(ctx context.Context, query url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
