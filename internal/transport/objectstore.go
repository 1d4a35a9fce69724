package transport

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"uploadq/internal/dataurl"
	"uploadq/internal/model"
	"uploadq/internal/storage"
)

// ObjectStore writes payloads straight into object storage, bypassing an
// upload endpoint. Request.URL and Request.Headers are ignored.
type ObjectStore struct {
	store  storage.Storage
	prefix string
	expiry time.Duration
}

var _ Transport = (*ObjectStore)(nil)

// NewObjectStore returns a transport storing objects under prefix and
// answering with download URLs valid for expiry.
func NewObjectStore(store storage.Storage, prefix string, expiry time.Duration) *ObjectStore {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ObjectStore{store: store, prefix: prefix, expiry: expiry}
}

// ObjectName returns the stored file name for a payload: its GUID plus the
// final extension.
func ObjectName(p model.UploadPayload) string {
	if p.FileExt == "" {
		return p.GUID
	}
	return p.GUID + "." + p.FileExt
}

// Upload implements Transport. A payload that cannot be decoded is reported
// as a failed upload rather than a fault.
func (t *ObjectStore) Upload(ctx context.Context, req Request, progress ProgressFunc) (*model.UploadResponse, error) {
	mime, data, err := dataurl.Decode(req.Payload.Data)
	if err != nil {
		return &model.UploadResponse{Status: model.ResponseStatusError, Error: "invalid file payload"}, nil
	}

	name := ObjectName(req.Payload)
	key := path.Join(t.prefix, name)
	total := int64(len(data))

	_, err = t.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        total,
		ContentType: mime,
		Metadata:    objectMetadata(req.Payload),
		Progress:    &progressSink{total: total, fn: progress},
	})
	if err != nil {
		return nil, err
	}

	url, err := t.store.PresignGet(ctx, key, t.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}
	return &model.UploadResponse{Status: model.ResponseStatusOK, Filename: name, URL: url}, nil
}

func objectMetadata(p model.UploadPayload) map[string]string {
	md := map[string]string{
		"guid":              p.GUID,
		"original-filename": p.OrigFileName + "." + p.OrigFileExt,
		"hash":              p.FileHash,
	}
	if p.OrigFileExt == "" {
		md["original-filename"] = p.OrigFileName
	}
	for k, v := range p.Meta {
		md["meta-"+k] = fmt.Sprint(v)
	}
	return md
}
