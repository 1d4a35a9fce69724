// Package repository contains data access abstractions for the receiver.
// Implementations live in subpackages.
package repository

import (
	"context"

	"uploadq/internal/model"
)

// UploadRepository defines persistence of received uploads. No business
// logic here, strictly queries.
type UploadRepository interface {
	// Create inserts a new upload row and returns the stored record.
	Create(ctx context.Context, u *model.Upload) (*model.Upload, error)

	// FindByID returns an upload by its ID, sql.ErrNoRows when absent.
	FindByID(ctx context.Context, id string) (*model.Upload, error)

	// FindByClientGUID returns the upload created for a client record GUID,
	// sql.ErrNoRows when absent.
	FindByClientGUID(ctx context.Context, guid string) (*model.Upload, error)

	// List returns a page of uploads, newest first, and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Upload], error)

	// Delete removes an upload by ID. Missing rows are not an error.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
