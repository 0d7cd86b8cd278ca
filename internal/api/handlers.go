// handlers.go - Shared request helpers and response shapes
package api

import (
	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/session"
	"github.com/labstack/echo/v4"
)

// sessionResponse is a snapshot plus the notices the client may have missed.
type sessionResponse struct {
	models.Snapshot
	Notifications []models.Notification `json:"notifications" msgpack:"notifications"`
}

func newSessionResponse(state *session.State) sessionResponse {
	recent := state.Events.Recent()
	if recent == nil {
		recent = []models.Notification{}
	}
	return sessionResponse{
		Snapshot:      state.Session.Snapshot(),
		Notifications: recent,
	}
}

// lookupSession resolves the :sessionId path parameter and marks the
// session as accessed.
func lookupSession(sessions SessionManager, c echo.Context) (*session.State, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	state, err := sessions.Get(id)
	if err != nil {
		return nil, fromDomainError(err, id)
	}
	return state, nil
}

// slotParam returns the :slotId path parameter.
func slotParam(c echo.Context) (models.SlotID, error) {
	id := c.Param("slotId")
	if id == "" {
		return "", NewValidationError("slotId")
	}
	return models.SlotID(id), nil
}
