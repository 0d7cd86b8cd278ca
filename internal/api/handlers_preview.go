// handlers_preview.go - Image preview handlers
package api

import (
	"net/http"

	"github.com/comp-report/intake/internal/storage"
	"github.com/labstack/echo/v4"
)

// PreviewHandlerImpl implements the PreviewHandler interface
type PreviewHandlerImpl struct {
	previews storage.PreviewStore
}

// NewPreviewHandler creates a new preview handler instance
func NewPreviewHandler(previews storage.PreviewStore) PreviewHandler {
	return &PreviewHandlerImpl{previews: previews}
}

// HandleGetPreview serves the bytes behind a live preview handle
func (h *PreviewHandlerImpl) HandleGetPreview(c echo.Context) error {
	handle := c.Param("handle")
	p, err := h.previews.Get(handle)
	if err != nil {
		return fromDomainError(err, handle)
	}

	contentType := p.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	return c.Blob(http.StatusOK, contentType, p.Data)
}
