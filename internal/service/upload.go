package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"uploadq/internal/dataurl"
	"uploadq/internal/model"
	"uploadq/internal/repository"
	"uploadq/internal/storage"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("upload not found")
	ErrInvalidPayload = errors.New("invalid file payload")
	ErrHashMismatch   = errors.New("file hash mismatch")
)

const keyPrefix = "uploads"

// UploadListResult is the service-level DTO for paginated uploads.
type UploadListResult struct {
	Items []model.Upload `json:"data"`
	Total int            `json:"total"`
}

// Received is the outcome of a stored upload.
type Received struct {
	Upload *model.Upload
	URL    string
}

// UploadService defines the receiver use cases.
type UploadService interface {
	// Receive validates a client payload, stores its content and records its
	// metadata. A payload whose GUID was already received returns the stored
	// upload. Validation failures wrap ErrInvalidPayload or ErrHashMismatch.
	Receive(ctx context.Context, p model.UploadPayload) (*Received, error)

	// List returns uploads using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*UploadListResult, error)

	// Get returns a single upload by its ID.
	Get(ctx context.Context, id string) (*model.Upload, error)

	// Open streams the stored content of an upload. The caller closes the
	// reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Upload, error)

	// Delete removes an upload from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type uploadService struct {
	store  storage.Storage
	repo   repository.UploadRepository
	expiry time.Duration
	log    *slog.Logger
}

// NewUploadService constructs an UploadService. expiry is the lifetime of the
// download URLs it hands out.
func NewUploadService(store storage.Storage, repo repository.UploadRepository, expiry time.Duration, logger *slog.Logger) UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &uploadService{
		store:  store,
		repo:   repo,
		expiry: expiry,
		log:    logger.With(slog.String("component", "upload_service")),
	}
}

func (s *uploadService) Receive(ctx context.Context, p model.UploadPayload) (*Received, error) {
	if _, err := uuid.Parse(p.GUID); err != nil {
		return nil, fmt.Errorf("%w: guid: %v", ErrInvalidPayload, err)
	}
	mime, data, err := dataurl.Decode(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.FileHash != "" {
		sum := md5.Sum([]byte(p.Data))
		if !strings.EqualFold(hex.EncodeToString(sum[:]), p.FileHash) {
			return nil, ErrHashMismatch
		}
	}

	existing, err := s.repo.FindByClientGUID(ctx, p.GUID)
	switch {
	case err == nil:
		s.log.Info("duplicate upload", slog.String("guid", p.GUID), slog.String("id", existing.ID))
		return s.received(ctx, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("lookup guid: %w", err)
	}

	contentType := p.FileMime
	if contentType == "" {
		contentType = mime
	}
	name := p.GUID
	if p.FileExt != "" {
		name += "." + strings.ToLower(p.FileExt)
	}
	key := path.Join(keyPrefix, name)

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"guid":              p.GUID,
			"original-filename": originalName(p),
			"hash":              p.FileHash,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	up := &model.Upload{
		ID:          uuid.NewString(),
		ClientGUID:  p.GUID,
		Filename:    originalName(p),
		StoragePath: objInfo.Key,
		Size:        int64(len(data)),
		ContentType: contentType,
		Width:       p.FileWidth,
		Height:      p.FileHeight,
		Hash:        p.FileHash,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, up)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return s.received(ctx, stored)
}

func (s *uploadService) received(ctx context.Context, u *model.Upload) (*Received, error) {
	url, err := s.store.PresignGet(ctx, u.StoragePath, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &Received{Upload: u, URL: url}, nil
}

// originalName rebuilds the file name the client selected.
func originalName(p model.UploadPayload) string {
	if p.OrigFileExt == "" {
		return p.OrigFileName
	}
	return p.OrigFileName + "." + p.OrigFileExt
}

// List returns paginated uploads without exposing repository types.
func (s *uploadService) List(ctx context.Context, limit, offset int) (*UploadListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &UploadListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns an upload by ID.
func (s *uploadService) Get(ctx context.Context, id string) (*model.Upload, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Open looks the upload up and opens its object. A row whose object is gone
// is reported as ErrNotFound.
func (s *uploadService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Upload, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, u.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return rc, u, nil
}

// Delete removes the stored object, then its row. The row is kept when the
// object cannot be deleted.
func (s *uploadService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.store.Delete(ctx, u.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
