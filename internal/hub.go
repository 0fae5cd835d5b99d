package internal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const hubWriteWait = 10 * time.Second

// Hub fans stage events out to websocket clients, one room per run
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*websocket.Conn]bool
	last   map[string][]byte
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]bool),
		last:   make(map[string][]byte),
		logger: logger.Named("hub"),
	}
}

// Register adds conn to room and replays the latest event for late joiners
func (h *Hub) Register(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	h.logger.Debug("register", zap.String("room", roomID), zap.Int("conns", len(h.rooms[roomID])))

	if msg, ok := h.last[roomID]; ok {
		_ = conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("replay failed", zap.String("room", roomID), zap.Error(err))
		}
	}
}

// Unregister removes and closes conn
func (h *Hub) Unregister(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		conn.Close()
		h.logger.Debug("unregister", zap.String("room", roomID), zap.Int("conns", len(conns)))
	}
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// SendToRoom writes msg to every connection in room
func (h *Hub) SendToRoom(roomID string, msg []byte) {
	// Writes happen under the write lock: gorilla connections allow
	// only one concurrent writer.
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[roomID] = msg
	conns := h.rooms[roomID]
	if len(conns) == 0 {
		return
	}

	for conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("send failed", zap.String("room", roomID), zap.Error(err))
		}
	}
}

// Forget drops the replay message kept for room
func (h *Hub) Forget(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, roomID)
}

// Publish encodes ev as JSON and sends it to the run's room
func (h *Hub) Publish(ev StageEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}
	h.SendToRoom(ev.RunID, payload)
}

// Upgrader upgrades HTTP requests to websocket connections
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
