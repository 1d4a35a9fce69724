package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"uploadq/internal/model"
)

const (
	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

// HTTP posts payloads as JSON to an upload endpoint.
type HTTP struct {
	client *http.Client
}

var _ Transport = (*HTTP)(nil)

// NewHTTP returns an HTTP transport with a traced client.
func NewHTTP(timeout time.Duration) *HTTP {
	return NewHTTPWithClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewHTTPWithClient returns an HTTP transport using c.
func NewHTTPWithClient(c *http.Client) *HTTP {
	return &HTTP{client: c}
}

// Upload implements Transport. Non-2xx replies and undecodable bodies are
// transport faults; a decoded reply is returned as-is.
func (t *HTTP) Upload(ctx context.Context, req Request, progress ProgressFunc) (*model.UploadResponse, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	total := int64(len(body))
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, &progressReader{
		r:     bytes.NewReader(body),
		total: total,
		fn:    progress,
	})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.ContentLength = total
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	if req.Payload.GUID != "" {
		hreq.Header.Set(requestIDHeader, req.Payload.GUID)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out model.UploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
