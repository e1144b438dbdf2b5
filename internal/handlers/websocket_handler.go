package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedHandler pushes analysis events to subscribed websocket clients. It is
// a broadcast-only feed; the only inbound messages are subscribe and ping.
type FeedHandler struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]string
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	log        *zap.Logger
}

func NewFeedHandler(log *zap.Logger) *FeedHandler {
	return &FeedHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}
}

// Connect upgrades the request and keeps the connection alive with pings.
func (h *FeedHandler) Connect(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		h.unregister <- ws
		ws.Close()
	}()

	h.register <- ws

	go h.readLoop(ws)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
			return
		}
	}
}

func (h *FeedHandler) readLoop(ws *websocket.Conn) {
	for {
		var msg map[string]interface{}
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg["type"] {
		case "subscribe":
			ws.WriteJSON(map[string]interface{}{
				"type":      "subscribed",
				"message":   "Subscribed to analysis feed",
				"timestamp": time.Now().Unix(),
			})
		case "ping":
			ws.WriteJSON(map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			})
		default:
			ws.WriteJSON(map[string]interface{}{
				"type":      "error",
				"message":   "Unknown message type",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// Run owns the client set; call it once from main.
func (h *FeedHandler) Run() {
	for {
		select {
		case client := <-h.register:
			clientID := uuid.New().String()
			h.clients[client] = clientID
			h.log.Info("feed client connected",
				zap.String("client_id", clientID),
				zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if clientID, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.Info("feed client disconnected",
					zap.String("client_id", clientID),
					zap.Int("total", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.log.Warn("feed broadcast failed", zap.Error(err))
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastAnalysis publishes a sentiment result to all feed subscribers.
func (h *FeedHandler) BroadcastAnalysis(contentHash, sentiment string) {
	if h == nil {
		return
	}
	message, err := json.Marshal(map[string]interface{}{
		"type":         "analysis",
		"content_hash": contentHash,
		"sentiment":    sentiment,
		"timestamp":    time.Now().Unix(),
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- message:
	default:
		// Feed is best effort; drop when nobody is draining.
	}
}
