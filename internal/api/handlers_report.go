// handlers_report.go - Report pipeline handlers
package api

import (
	"errors"
	"net/http"

	"github.com/comp-report/intake/internal/report"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReportHandlerImpl implements the ReportHandler interface
type ReportHandlerImpl struct {
	sessions SessionManager
	log      *zap.Logger
}

// NewReportHandler creates a new report handler instance
func NewReportHandler(sessions SessionManager, log *zap.Logger) ReportHandler {
	return &ReportHandlerImpl{
		sessions: sessions,
		log:      log,
	}
}

type confirmResetRequest struct {
	Token string `json:"token" validate:"required"`
}

// HandleStartProcessing begins report generation
func (h *ReportHandlerImpl) HandleStartProcessing(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	if err := state.Session.StartProcessing(); err != nil {
		if errors.Is(err, report.ErrEmptySubmission) {
			h.log.Debug("report requested with no documents", zap.String("session", state.Session.ID()))
		}
		return fromDomainError(err, state.Session.ID())
	}
	return c.JSON(http.StatusAccepted, state.Session.Snapshot().Pipeline)
}

// HandleDownload returns the generated report reference
func (h *ReportHandlerImpl) HandleDownload(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	artifact, err := state.Session.Download()
	if err != nil {
		return fromDomainError(err, state.Session.ID())
	}
	return c.JSON(http.StatusOK, artifact)
}

// HandleRequestReset opens a reset confirmation and returns its token
func (h *ReportHandlerImpl) HandleRequestReset(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	req, err := state.Session.RequestReset()
	if err != nil {
		return fromDomainError(err, state.Session.ID())
	}
	return c.JSON(http.StatusOK, req)
}

// HandleConfirmReset clears every slot and returns the pipeline to idle
func (h *ReportHandlerImpl) HandleConfirmReset(c echo.Context) error {
	var req confirmResetRequest
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
	if err := state.Session.ConfirmReset(req.Token); err != nil {
		return fromDomainError(err, state.Session.ID())
	}
	return c.JSON(http.StatusOK, newSessionResponse(state))
}

// HandleCancelReset discards a pending reset request
func (h *ReportHandlerImpl) HandleCancelReset(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	if err := state.Session.CancelReset(c.Param("token")); err != nil {
		return fromDomainError(err, state.Session.ID())
	}
	return c.NoContent(http.StatusNoContent)
}
