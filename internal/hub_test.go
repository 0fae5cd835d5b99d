package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRoom(t *testing.T, hub *Hub, room string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(room, conn)
		defer hub.Unregister(room, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) StageEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev StageEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHub_ReplaysLastEventToLateJoiner(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(StageEvent{RunID: "r1", Stage: StageFetching, Progress: 10})
	hub.Publish(StageEvent{RunID: "r1", Stage: StageConverting, Progress: 25})

	conn := dialRoom(t, hub, "r1")

	ev := readEvent(t, conn)
	assert.Equal(t, StageConverting, ev.Stage)
	assert.Equal(t, 25, ev.Progress)

	hub.Publish(StageEvent{RunID: "r1", Stage: StageTranscribing, Progress: 40})
	ev = readEvent(t, conn)
	assert.Equal(t, StageTranscribing, ev.Stage)
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(StageEvent{RunID: "a", Stage: StageDone, Progress: 100})
	hub.Publish(StageEvent{RunID: "b", Stage: StageError, Message: "boom"})

	ev := readEvent(t, dialRoom(t, hub, "b"))
	assert.Equal(t, "b", ev.RunID)
	assert.Equal(t, StageError, ev.Stage)
	assert.Equal(t, "boom", ev.Message)
}
