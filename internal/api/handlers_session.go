// handlers_session.go - Report session lifecycle handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
	log      *zap.Logger
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessions SessionManager, log *zap.Logger) SessionHandler {
	return &SessionHandlerImpl{
		sessions: sessions,
		log:      log,
	}
}

// HandleCreateSession starts a new report with every slot empty
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	state, err := h.sessions.Create()
	if err != nil {
		return fromDomainError(err, "")
	}
	return c.JSON(http.StatusCreated, newSessionResponse(state))
}

// HandleGetSession returns the current snapshot of a session
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(state))
}

// HandleGetSessionMsgpack returns the snapshot encoded as MessagePack
func (h *SessionHandlerImpl) HandleGetSessionMsgpack(c echo.Context) error {
	state, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(newSessionResponse(state))
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteSession closes a session, cancelling its timers and releasing
// its previews
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if err := h.sessions.Delete(id); err != nil {
		return fromDomainError(err, id)
	}
	h.log.Info("session closed by client", zap.String("session", id))
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends a session's idle deadline
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessions.Touch(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}
