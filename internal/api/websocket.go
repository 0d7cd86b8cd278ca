package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/comp-report/intake/internal/notify"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebSocket message types for the session event stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeSnapshot     = "snapshot"
	MsgTypeNotification = "notification"
	MsgTypePong         = "pong"
	MsgTypeError        = "error"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReplyQueue = 8
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams snapshots and notifications of one session
type WebSocketHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler creates a new event stream handler
func NewWebSocketHandler(sessions SessionManager, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		log: log,
	}
}

// HandleEventStream upgrades the connection and forwards every session event
// until the client disconnects or the session closes. The current snapshot
// is sent first.
func (wsh *WebSocketHandler) HandleEventStream(c echo.Context) error {
	state, err := lookupSession(wsh.sessions, c)
	if err != nil {
		return err
	}
	id := state.Session.ID()

	// Subscribe before reading the first snapshot so no update falls between.
	events, unsubscribe := state.Events.Subscribe()
	defer unsubscribe()

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := wsh.log.With(zap.String("session", id))
	log.Debug("event stream connected")

	stop := make(chan struct{})
	defer close(stop)
	replies := make(chan WSMessage, wsReplyQueue)
	readerDone := make(chan struct{})
	go wsh.readLoop(ws, id, replies, stop, readerDone, log)

	snap := state.Session.Snapshot()
	if err := wsh.sendMessage(ws, newWSMessage(MsgTypeSnapshot, id, snap)); err != nil {
		return nil
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				log.Debug("session closed, ending event stream")
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return nil
			}
			if err := wsh.sendMessage(ws, eventMessage(id, e)); err != nil {
				return nil
			}
		case msg := <-replies:
			if err := wsh.sendMessage(ws, msg); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
		case <-readerDone:
			log.Debug("event stream disconnected")
			return nil
		}
	}
}

// readLoop answers client pings. It is the only reader of ws.
func (wsh *WebSocketHandler) readLoop(ws *websocket.Conn, id string, replies chan<- WSMessage, stop <-chan struct{}, done chan<- struct{}, log *zap.Logger) {
	defer close(done)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("event stream read failed", zap.Error(err))
			}
			return
		}

		var reply WSMessage
		switch msg.Type {
		case MsgTypePing:
			wsh.sessions.Touch(id)
			reply = WSMessage{Type: MsgTypePong, SessionID: id, Timestamp: time.Now().UnixMilli()}
		default:
			reply = newWSMessage(MsgTypeError, id, WSErrorResponse{
				Message: "Unknown message type: " + msg.Type,
				Code:    "INVALID_TYPE",
			})
		}

		select {
		case replies <- reply:
		case <-stop:
			return
		}
	}
}

// sendMessage writes msg as JSON, bounded by the write deadline
func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := ws.WriteJSON(msg); err != nil {
		wsh.log.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	return nil
}

func eventMessage(id string, e notify.Event) WSMessage {
	switch e.Type {
	case notify.EventNotification:
		return newWSMessage(MsgTypeNotification, id, e.Notification)
	default:
		return newWSMessage(MsgTypeSnapshot, id, e.Snapshot)
	}
}

func newWSMessage(msgType, id string, payload interface{}) WSMessage {
	return WSMessage{
		Type:      msgType,
		SessionID: id,
		Payload:   mustJSON(payload),
		Timestamp: time.Now().UnixMilli(),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
