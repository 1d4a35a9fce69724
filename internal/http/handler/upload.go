package handler

import (
	"errors"
	"log/slog"
	"path"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"uploadq/internal/model"
	"uploadq/internal/service"
)

func rejected(msg string) model.UploadResponse {
	return model.UploadResponse{Status: model.ResponseStatusError, Error: msg}
}

// ReceiveUpload stores one file sent by the upload queue. Payload problems
// are reported in the body with status "error" so the client can show the
// message; infrastructure failures use the standard error envelope.
//
// @Summary Receive a file
// @Tags uploads
// @Accept json
// @Produce json
// @Param payload body model.UploadPayload true "File payload"
// @Success 200 {object} model.UploadResponse
// @Failure 500 {object} errorPayload
// @Router /upload [post]
func ReceiveUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p model.UploadPayload
		if err := c.BodyParser(&p); err != nil {
			return c.JSON(rejected("invalid request body"))
		}

		res, err := svc.Receive(c.UserContext(), p)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidPayload):
				return c.JSON(rejected("invalid file payload"))
			case errors.Is(err, service.ErrHashMismatch):
				return c.JSON(rejected("file hash mismatch"))
			}
			slog.ErrorContext(c.UserContext(), "receive upload",
				slog.String("request_id", requestIDFromCtx(c)),
				slog.String("guid", p.GUID),
				slog.String("error", err.Error()))
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(model.UploadResponse{
			Status:   model.ResponseStatusOK,
			Filename: path.Base(res.Upload.StoragePath),
			URL:      res.URL,
		})
	}
}

// ListUploads returns stored uploads with limit and offset.
//
// @Summary List uploads
// @Tags uploads
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.UploadListResult
// @Failure 400 {object} errorPayload
// @Router /uploads [get]
func ListUploads(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetUpload returns a stored upload by ID.
//
// @Summary Get upload
// @Tags uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} model.Upload
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /uploads/{id} [get]
func GetUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "upload not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(u)
	}
}

// DownloadUpload streams the stored file.
//
// @Summary Download upload content
// @Tags uploads
// @Produce octet-stream
// @Param id path string true "Upload ID"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /uploads/{id}/content [get]
func DownloadUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, u, err := svc.Open(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "upload not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, u.ContentType)
		c.Attachment(u.Filename)
		// fasthttp closes rc once the body has been written.
		return c.SendStream(rc, int(u.Size))
	}
}

// DeleteUpload removes a stored upload and its object.
//
// @Summary Delete upload
// @Tags uploads
// @Param id path string true "Upload ID"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /uploads/{id} [delete]
func DeleteUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "upload not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
