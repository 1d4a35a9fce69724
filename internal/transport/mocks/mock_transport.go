package mocks

import (
	"context"

	"uploadq/internal/model"
	"uploadq/internal/transport"

	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Upload(ctx context.Context, req transport.Request, progress transport.ProgressFunc) (*model.UploadResponse, error) {
	args := m.Called(ctx, req, progress)
	if f, ok := args.Get(0).(func(transport.Request, transport.ProgressFunc) (*model.UploadResponse, error)); ok {
		return f(req, progress)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResponse), args.Error(1)
}
