// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"

	"github.com/comp-report/intake/internal/logging"
	"github.com/comp-report/intake/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions SessionManager
	Previews storage.PreviewStore
	Version  string
	Log      *zap.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Session SessionHandler
	Slot    SlotHandler
	Report  ReportHandler
	Preview PreviewHandler
	Events  EventStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	log := deps.Log.Named("api")
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Sessions),
		Session: NewSessionHandler(deps.Sessions, log),
		Slot:    NewSlotHandler(deps.Sessions, log),
		Report:  NewReportHandler(deps.Sessions, log),
		Preview: NewPreviewHandler(deps.Previews),
		Events:  NewWebSocketHandler(deps.Sessions, log.Named("ws")),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Session routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.GET("/:sessionId/msgpack", handlers.Session.HandleGetSessionMsgpack)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/:sessionId/ws", handlers.Events.HandleEventStream)

	// Slot routes
	sessionGroup.PUT("/:sessionId/slots/:slotId/file", handlers.Slot.HandleSelectFile)
	sessionGroup.POST("/:sessionId/slots/:slotId/file", handlers.Slot.HandleUploadSlotFile)
	sessionGroup.DELETE("/:sessionId/slots/:slotId/file", handlers.Slot.HandleRemoveFile)
	sessionGroup.PUT("/:sessionId/slots/:slotId/drag", handlers.Slot.HandleSetDragActive)

	// Report routes
	sessionGroup.POST("/:sessionId/report/start", handlers.Report.HandleStartProcessing)
	sessionGroup.POST("/:sessionId/report/download", handlers.Report.HandleDownload)
	sessionGroup.POST("/:sessionId/report/reset", handlers.Report.HandleRequestReset)
	sessionGroup.POST("/:sessionId/report/reset/confirm", handlers.Report.HandleConfirmReset)
	sessionGroup.DELETE("/:sessionId/report/reset/:token", handlers.Report.HandleCancelReset)

	e.GET("/api/previews/:handle", handlers.Preview.HandleGetPreview)
}

// MiddlewareConfig selects the optional middleware
type MiddlewareConfig struct {
	EnableCORS   bool
	AllowOrigins []string
	BodyLimit    string
	ErrorDetails bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig, log *zap.Logger) {
	e.HTTPErrorHandler = NewErrorHandler(log.Named("http"), cfg.ErrorDetails)
	e.Validator = NewRequestValidator()

	e.Use(middleware.Recover())
	e.Use(logging.RequestLogger(log.Named("http")))

	if cfg.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
}
