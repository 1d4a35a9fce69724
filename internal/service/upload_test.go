package service

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"uploadq/internal/dataurl"
	"uploadq/internal/model"
	"uploadq/internal/repository"
	repoMocks "uploadq/internal/repository/mocks"
	"uploadq/internal/storage"
	storeMocks "uploadq/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testGUID   = "9b2f3c1e-7a4d-4e2b-9c1f-0a1b2c3d4e5f"
	testExpiry = time.Hour
)

func testPayload() model.UploadPayload {
	data := dataurl.Encode("text/plain", []byte("hello world"))
	sum := md5.Sum([]byte(data))
	return model.UploadPayload{
		GUID:         testGUID,
		OrigFileName: "notes",
		OrigFileExt:  "TXT",
		OrigMime:     "text/plain",
		FileHash:     hex.EncodeToString(sum[:]),
		FileExt:      "txt",
		FileMime:     "text/plain",
		FileSize:     11,
		Data:         data,
	}
}

func TestUploadService_Receive(t *testing.T) {
	ctx := context.Background()
	key := "uploads/" + testGUID + ".txt"

	tests := []struct {
		name       string
		payload    func() model.UploadPayload
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository)
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, res *Received)
	}{
		{
			name:    "happy path",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, key, mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
					return o.Size == 11 && o.ContentType == "text/plain" &&
						o.Metadata["original-filename"] == "notes.TXT" && o.Metadata["guid"] == testGUID
				})).Return(func(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) (storage.ObjectInfo, error) {
					b, err := io.ReadAll(r)
					if err != nil {
						return storage.ObjectInfo{}, err
					}
					if string(b) != "hello world" {
						return storage.ObjectInfo{}, errors.New("unexpected body")
					}
					return storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
				})
				mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.Upload) bool {
					return u.ClientGUID == testGUID && u.StoragePath == key && u.Filename == "notes.TXT" && u.Size == 11
				})).Return(&model.Upload{ID: "stored-id", ClientGUID: testGUID, StoragePath: key}, nil)
				mStore.On("PresignGet", ctx, key, testExpiry).Return("http://minio.local/"+key, nil)
			},
			check: func(t *testing.T, res *Received) {
				assert.Equal(t, "stored-id", res.Upload.ID)
				assert.Equal(t, "http://minio.local/"+key, res.URL)
			},
		},
		{
			name: "invalid guid",
			payload: func() model.UploadPayload {
				p := testPayload()
				p.GUID = "not-a-guid"
				return p
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {},
			wantErr:    ErrInvalidPayload,
		},
		{
			name: "malformed data",
			payload: func() model.UploadPayload {
				p := testPayload()
				p.Data = "hello"
				p.FileHash = ""
				return p
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {},
			wantErr:    ErrInvalidPayload,
		},
		{
			name: "hash mismatch",
			payload: func() model.UploadPayload {
				p := testPayload()
				p.FileHash = "00000000000000000000000000000000"
				return p
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {},
			wantErr:    ErrHashMismatch,
		},
		{
			name:    "duplicate guid returns stored upload",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).
					Return(&model.Upload{ID: "existing", StoragePath: key}, nil)
				mStore.On("PresignGet", ctx, key, testExpiry).Return("http://minio.local/existing", nil)
			},
			check: func(t *testing.T, res *Received) {
				assert.Equal(t, "existing", res.Upload.ID)
			},
		},
		{
			name:    "lookup error",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(nil, errors.New("db down"))
			},
			wantErrMsg: "lookup guid: db down",
		},
		{
			name:    "storage error",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, key, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:    "repository error with successful rollback",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, key, mock.Anything, mock.Anything).
					Return(func(_ context.Context, key string, _ io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, key).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:    "repository error with failed rollback",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(nil, sql.ErrNoRows)
				mStore.On("Put", ctx, key, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: key}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, key).Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name:    "presign error",
			payload: testPayload,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByClientGUID", ctx, testGUID).Return(&model.Upload{ID: "existing", StoragePath: key}, nil)
				mStore.On("PresignGet", ctx, key, testExpiry).Return("", errors.New("no credentials"))
			},
			wantErrMsg: "presign: no credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockUploadRepository)
			svc := NewUploadService(mStore, mRepo, testExpiry, nil)

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Receive(ctx, tt.payload())

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, res)
			default:
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.check != nil {
					tt.check(t, res)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestUploadService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockUploadRepository)
		wantErr    bool
		checkRes   func(t *testing.T, res *UploadListResult)
	}{
		{
			name:   "happy path",
			limit:  10,
			offset: 0,
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Upload]{
						Items: []model.Upload{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *UploadListResult) {
				assert.Len(t, res.Items, 2)
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Upload]{Items: []model.Upload{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUploadRepository)
			svc := NewUploadService(nil, mRepo, testExpiry, nil)

			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, tt.limit, tt.offset)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestUploadService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockUploadRepository)
		wantErr    error
		anyErr     bool
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Upload{ID: "valid-id"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   "error-id",
			setupMocks: func(mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "error-id").Return(nil, errors.New("db fail"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUploadRepository)
			svc := NewUploadService(nil, mRepo, testExpiry, nil)

			tt.setupMocks(mRepo)

			u, err := svc.Get(ctx, tt.id)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
			case tt.anyErr:
				assert.Error(t, err)
				assert.Nil(t, u)
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.id, u.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestUploadService_Open(t *testing.T) {
	ctx := context.Background()
	stored := &model.Upload{ID: "id-1", StoragePath: "uploads/" + testGUID + ".txt", ContentType: "text/plain"}

	t.Run("streams the stored object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockUploadRepository)
		svc := NewUploadService(mStore, mRepo, testExpiry, nil)

		mRepo.On("FindByID", ctx, "id-1").Return(stored, nil)
		mStore.On("Get", ctx, stored.StoragePath).
			Return(io.NopCloser(strings.NewReader("hello world")), storage.ObjectInfo{Key: stored.StoragePath}, nil)

		rc, u, err := svc.Open(ctx, "id-1")
		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "hello world", string(body))
		assert.Equal(t, stored, u)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		mRepo := new(repoMocks.MockUploadRepository)
		svc := NewUploadService(new(storeMocks.MockStorage), mRepo, testExpiry, nil)
		mRepo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		rc, u, err := svc.Open(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, rc)
		assert.Nil(t, u)
	})

	t.Run("object missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockUploadRepository)
		svc := NewUploadService(mStore, mRepo, testExpiry, nil)

		mRepo.On("FindByID", ctx, "id-1").Return(stored, nil)
		mStore.On("Get", ctx, stored.StoragePath).Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, _, err := svc.Open(ctx, "id-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockUploadRepository)
		svc := NewUploadService(mStore, mRepo, testExpiry, nil)

		mRepo.On("FindByID", ctx, "id-1").Return(stored, nil)
		mStore.On("Get", ctx, stored.StoragePath).Return(nil, storage.ObjectInfo{}, errors.New("no such key"))

		_, _, err := svc.Open(ctx, "id-1")
		assert.ErrorContains(t, err, "open storage")
	})
}

func TestUploadService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Upload{ID: "valid-id", StoragePath: "uploads/obj"}, nil)
				mStore.On("Delete", ctx, "uploads/obj").Return(nil)
				mRepo.On("Delete", ctx, "valid-id").Return(nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage delete error keeps row",
			id:   "storage-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "storage-fail-id").Return(&model.Upload{ID: "id", StoragePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(errors.New("storage fail"))
			},
			wantErrMsg: "delete storage: storage fail",
		},
		{
			name: "repository delete error",
			id:   "repo-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockUploadRepository) {
				mRepo.On("FindByID", ctx, "repo-fail-id").Return(&model.Upload{ID: "id", StoragePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(nil)
				mRepo.On("Delete", ctx, "repo-fail-id").Return(errors.New("db fail"))
			},
			wantErrMsg: "db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockUploadRepository)
			svc := NewUploadService(mStore, mRepo, testExpiry, nil)

			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}
