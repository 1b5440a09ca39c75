package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-execution/internal/engine"
	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

// Event types pushed to websocket clients.
const (
	EventSignal         = "signal"
	EventOrder          = "order"
	EventTrade          = "trade"
	EventRisk           = "risk"
	EventStats          = "stats"
	EventProtectiveExit = "protective_exit"
	EventError          = "error"
)

const (
	clientBuffer = 256
	writeTimeout = 5 * time.Second
)

// Event is one message on the /ws stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type protectiveExitEvent struct {
	Position types.Position `json:"position"`
	Order    types.Order    `json:"order"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans engine events out to websocket clients. A slow client drops messages
// instead of blocking the engine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	now     func() time.Time
	logger  *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		now:     time.Now,
		logger:  log.Named("hub"),
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(eventType string, data any) {
	message, err := json.Marshal(Event{Type: eventType, Timestamp: h.now(), Data: data})
	if err != nil {
		h.logger.Warn("Failed to encode event", zap.String("type", eventType), zap.Error(err))

		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, send := range h.clients {
		select {
		case send <- message:
		default:
			h.logger.Debug("Client buffer full, dropping event",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.String("type", eventType),
			)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))

		return
	}

	send := make(chan []byte, clientBuffer)

	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	h.logger.Info("Websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(conn, send)

	// reads only detect the close; clients do not send anything
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(conn)
}

func (h *Hub) writePump(conn *websocket.Conn, send chan []byte) {
	for message := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.unregister(conn)

			return
		}
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.logger.Info("Websocket client disconnected", zap.String("remote", conn.RemoteAddr().String()))
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, send := range h.clients {
		close(send)
		conn.Close()
		delete(h.clients, conn)
	}
}

// Callbacks returns engine callbacks that broadcast every engine event.
func (h *Hub) Callbacks() engine.Callbacks {
	onSignal := engine.OnSignalCallback(func(result engine.SignalResult) {
		h.Broadcast(EventSignal, result)
	})
	onOrder := engine.OnOrderUpdateCallback(func(order types.Order) {
		h.Broadcast(EventOrder, order)
	})
	onTrade := engine.OnTradeCallback(func(trade types.Trade) {
		h.Broadcast(EventTrade, trade)
	})
	onRisk := engine.OnRiskUpdateCallback(func(metrics types.RiskMetrics) {
		h.Broadcast(EventRisk, newRiskResponse(metrics))
	})
	onStats := engine.OnStatsUpdateCallback(func(stats types.SessionStats) {
		h.Broadcast(EventStats, stats)
	})
	onExit := engine.OnProtectiveExitCallback(func(position types.Position, order types.Order) {
		h.Broadcast(EventProtectiveExit, protectiveExitEvent{Position: position, Order: order})
	})
	onError := engine.OnErrorCallback(func(err error) {
		h.Broadcast(EventError, errorResponse{Error: err.Error(), Code: int(errors.GetCode(err))})
	})

	return engine.Callbacks{
		OnSignal:         &onSignal,
		OnOrderUpdate:    &onOrder,
		OnTrade:          &onTrade,
		OnRiskUpdate:     &onRisk,
		OnStatsUpdate:    &onStats,
		OnProtectiveExit: &onExit,
		OnError:          &onError,
	}
}
