// Package transport sends upload payloads to a sink and reports progress.
package transport

import (
	"context"
	"io"

	"uploadq/internal/model"
)

// ProgressFunc receives the cumulative number of bytes sent and the total.
type ProgressFunc func(loaded, total int64)

// Request is one file upload.
type Request struct {
	URL     string
	Headers map[string]string
	Payload model.UploadPayload
}

// Transport uploads a payload. A returned error is a transport-level fault
// (network, protocol, sink unavailable); a response whose status is not "ok"
// is a failure reported by the server.
type Transport interface {
	Upload(ctx context.Context, req Request, progress ProgressFunc) (*model.UploadResponse, error)
}

// progressReader reports bytes as they are read from the underlying reader.
type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.fn != nil {
			p.fn(p.loaded, p.total)
		}
	}
	return n, err
}

// progressSink counts bytes handed to it by a writer that reports progress by
// reading from it, as minio-go does.
type progressSink struct {
	loaded int64
	total  int64
	fn     ProgressFunc
}

func (p *progressSink) Read(b []byte) (int, error) {
	p.loaded += int64(len(b))
	if p.fn != nil && len(b) > 0 {
		p.fn(p.loaded, p.total)
	}
	return len(b), nil
}
