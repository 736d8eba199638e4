package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Jzephh/whop-chat-app/internal/errors"
)

// handleUpload stores one image with the external blob store and returns its
// URL. The message referencing the image is created separately.
func (s *Server) handleUpload(c echo.Context) error {
	if s.blobs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image uploads are not configured")
	}

	data, contentType, err := readImageFile(c)
	if err != nil {
		return err
	}

	blob, err := s.blobs.Store(c.Request().Context(), data, contentType)
	if err != nil {
		return errors.ExternalError("blob store unavailable", err)
	}

	return c.JSON(http.StatusOK, blob)
}

// readImageFile pulls the multipart "file" part, enforcing the image-only
// and size constraints.
func readImageFile(c echo.Context) ([]byte, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.ValidationError("file field is required")
	}
	if file.Size > maxUploadBytes {
		return nil, "", errors.ValidationError("file exceeds the 10 MB limit")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", errors.ValidationError("only image uploads are allowed")
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", errors.InternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return nil, "", errors.InternalError("failed to read uploaded file", err)
	}
	if len(data) > maxUploadBytes {
		return nil, "", errors.ValidationError("file exceeds the 10 MB limit")
	}
	return data, contentType, nil
}
