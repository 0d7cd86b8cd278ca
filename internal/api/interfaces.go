// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/comp-report/intake/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionHandler handles report session lifecycle operations
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleGetSessionMsgpack(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
}

// SlotHandler handles file selection within document slots
type SlotHandler interface {
	HandleSelectFile(c echo.Context) error
	HandleUploadSlotFile(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleSetDragActive(c echo.Context) error
}

// ReportHandler handles the report generation pipeline
type ReportHandler interface {
	HandleStartProcessing(c echo.Context) error
	HandleDownload(c echo.Context) error
	HandleRequestReset(c echo.Context) error
	HandleConfirmReset(c echo.Context) error
	HandleCancelReset(c echo.Context) error
}

// PreviewHandler serves image previews
type PreviewHandler interface {
	HandleGetPreview(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// EventStreamHandler streams session events to the browser
type EventStreamHandler interface {
	HandleEventStream(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() (*session.State, error)
	Get(id string) (*session.State, error)
	Touch(id string) bool
	Delete(id string) error
	Len() int
}
