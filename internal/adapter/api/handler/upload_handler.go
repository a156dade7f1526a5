package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"resaleo/internal/infrastructure/storage"
	"resaleo/pkg/errors"
	"resaleo/pkg/logger"
	"resaleo/pkg/response"
)

type UploadHandler struct {
	storageClient *storage.CloudStorageClient
	maxFileSize   int64
}

func NewUploadHandler(storageClient *storage.CloudStorageClient, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		storageClient: storageClient,
		maxFileSize:   maxFileSize,
	}
}

// UploadImage stores a chat image and returns its public URL. The caller
// then sends an image message carrying that URL.
func (h *UploadHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		logger.Error("Error getting image from form: %v", err)
		return response.Error(c, errors.Validation("No file uploaded"))
	}

	logger.Debug("Received image: %s, size: %d bytes, type: %s", file.Filename, file.Size, file.Header.Get("Content-Type"))

	if file.Size > h.maxFileSize {
		logger.Warn("Image too large: %d bytes (max: %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to open uploaded file", err))
	}
	defer src.Close()

	url, err := h.storageClient.UploadImage(c.Request().Context(), src, file.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("Failed to upload image: %v", err)
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"url": url})
}
