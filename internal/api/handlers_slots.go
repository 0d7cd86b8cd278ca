// handlers_slots.go - Document slot file selection handlers
package api

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/comp-report/intake/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SlotHandlerImpl implements the SlotHandler interface
type SlotHandlerImpl struct {
	sessions SessionManager
	log      *zap.Logger
}

// NewSlotHandler creates a new slot handler instance
func NewSlotHandler(sessions SessionManager, log *zap.Logger) SlotHandler {
	return &SlotHandlerImpl{
		sessions: sessions,
		log:      log,
	}
}

// selectFileRequest describes a file chosen in the browser. The file body
// itself never reaches the server; preview carries image bytes for display.
type selectFileRequest struct {
	Name    string `json:"name" validate:"required"`
	Size    int64  `json:"size" validate:"gte=0"`
	Type    string `json:"type"`
	Preview string `json:"preview,omitempty" validate:"omitempty,base64"`
}

type dragRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// HandleSelectFile assigns a file to a slot from its metadata. A rejected
// file is not a request error: the returned attachment carries the error
// state and reason.
func (h *SlotHandlerImpl) HandleSelectFile(c echo.Context) error {
	slot, err := slotParam(c)
	if err != nil {
		return err
	}

	var req selectFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var preview []byte
	if req.Preview != "" {
		preview, err = base64.StdEncoding.DecodeString(req.Preview)
		if err != nil {
			return NewBadRequestError("invalid base64 preview", err)
		}
	}

	file := models.FileInfo{Name: req.Name, Size: req.Size, Type: req.Type}
	return h.selectFile(c, slot, file, preview)
}

// HandleUploadSlotFile assigns a multipart file to a slot. When the browser
// sends no usable content type it is detected from the file's bytes.
func (h *SlotHandlerImpl) HandleUploadSlotFile(c echo.Context) error {
	slot, err := slotParam(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = mimetype.Detect(data).String()
	}
	contentType, _, _ = strings.Cut(contentType, ";")

	file := models.FileInfo{Name: fh.Filename, Size: fh.Size, Type: strings.TrimSpace(contentType)}

	var preview []byte
	if file.IsImage() {
		preview = data
	}
	return h.selectFile(c, slot, file, preview)
}

func (h *SlotHandlerImpl) selectFile(c echo.Context, slot models.SlotID, file models.FileInfo, preview []byte) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	att, err := state.Session.SelectFile(slot, file, preview)
	if err != nil {
		return fromDomainError(err, string(slot))
	}
	return c.JSON(http.StatusOK, att)
}

// HandleRemoveFile empties a slot
func (h *SlotHandlerImpl) HandleRemoveFile(c echo.Context) error {
	slot, err := slotParam(c)
	if err != nil {
		return err
	}
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	if err := state.Session.RemoveFile(slot); err != nil {
		return fromDomainError(err, string(slot))
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSetDragActive records drag-hover state for a slot
func (h *SlotHandlerImpl) HandleSetDragActive(c echo.Context) error {
	slot, err := slotParam(c)
	if err != nil {
		return err
	}

	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	if err := state.Session.SetDragActive(slot, *req.Active); err != nil {
		return fromDomainError(err, string(slot))
	}
	return c.NoContent(http.StatusNoContent)
}
