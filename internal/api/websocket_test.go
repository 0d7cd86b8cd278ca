package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialEventStream(t *testing.T, ts *testServer, id string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of type msgType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) WSMessage {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestEventStream_SnapshotOnConnectAndPingPong(t *testing.T) {
	ts := newTestServer(t, session.DefaultManagerOptions())
	id := ts.createSession(t)
	conn := dialEventStream(t, ts, id)

	first := readMessage(t, conn)
	assert.Equal(t, MsgTypeSnapshot, first.Type)
	assert.Equal(t, id, first.SessionID)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Len(t, snap.Slots, 4)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "upload:init"}))
	assert.Equal(t, MsgTypeError, readMessage(t, conn).Type)
}

func TestEventStream_ForwardsProgressAndNotifications(t *testing.T) {
	ts := newTestServer(t, session.DefaultManagerOptions())
	id := ts.createSession(t)
	conn := dialEventStream(t, ts, id)
	readMessage(t, conn)

	ts.selectFile(t, id, models.SlotComparable1, "comp1.pdf", mb, "application/pdf")
	ts.sched.Advance(2 * time.Second)

	msg := readUntil(t, conn, MsgTypeNotification)
	var n models.Notification
	require.NoError(t, json.Unmarshal(msg.Payload, &n))
	assert.Equal(t, models.NotifyUploadComplete, n.Kind)
	assert.Equal(t, models.SlotComparable1, n.SlotID)
}

func TestEventStream_EndsWhenSessionCloses(t *testing.T) {
	ts := newTestServer(t, session.DefaultManagerOptions())
	id := ts.createSession(t)
	conn := dialEventStream(t, ts, id)
	readMessage(t, conn)

	require.NoError(t, ts.sessions.Delete(id))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			return
		}
	}
}

func TestEventStream_UnknownSession(t *testing.T) {
	ts := newTestServer(t, session.DefaultManagerOptions())
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
