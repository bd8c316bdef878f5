package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"demovoice-server/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ProgressMessage represents a real-time pipeline progress update
type ProgressMessage struct {
	SessionID string                 `json:"session_id"`
	Stage     string                 `json:"stage"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	hub       *ProgressHub
	conn      *websocket.Conn
	send      chan []byte
	logger    *logrus.Logger
	sessionID string // If client subscribes to a specific session
}

// ProgressHub manages WebSocket clients and broadcasts pipeline progress
type ProgressHub struct {
	logger             *logrus.Logger
	clients            map[*Client]bool
	sessionSubscribers map[string]map[*Client]bool
	broadcast          chan *ProgressMessage
	register           chan *Client
	unregister         chan *Client
	mutex              sync.RWMutex
}

// WebSocketUpgrader configures the WebSocket connection
var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections
		return true
	},
}

// NewProgressHub creates a new progress hub
func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		logger:             logger,
		clients:            make(map[*Client]bool),
		sessionSubscribers: make(map[string]map[*Client]bool),
		broadcast:          make(chan *ProgressMessage),
		register:           make(chan *Client),
		unregister:         make(chan *Client),
	}
}

// Run starts the progress hub
func (h *ProgressHub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket progress hub")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Shutting down WebSocket progress hub")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true

			if client.sessionID != "" {
				if _, exists := h.sessionSubscribers[client.sessionID]; !exists {
					h.sessionSubscribers[client.sessionID] = make(map[*Client]bool)
				}
				h.sessionSubscribers[client.sessionID][client] = true
				h.logger.WithField("session_id", client.sessionID).Info("Client subscribed to specific session")
			}

			count := len(h.clients)
			h.mutex.Unlock()
			metrics.SetProgressClients(count)
			h.logger.Info("Client connected to WebSocket")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				if client.sessionID != "" {
					if subscribers, exists := h.sessionSubscribers[client.sessionID]; exists {
						delete(subscribers, client)
						if len(subscribers) == 0 {
							delete(h.sessionSubscribers, client.sessionID)
						}
					}
				}

				h.logger.Info("Client disconnected from WebSocket")
			}
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.SetProgressClients(count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal progress message")
				continue
			}

			// Full lock: slow clients are evicted inline, which mutates
			// the client maps.
			h.mutex.Lock()

			// Send to subscribers of this specific session
			if subscribers, exists := h.sessionSubscribers[message.SessionID]; exists && len(subscribers) > 0 {
				for client := range subscribers {
					select {
					case client.send <- data:
					default:
						close(client.send)
						delete(h.clients, client)
						delete(subscribers, client)
					}
				}
			}

			// Also broadcast to clients that want all sessions
			for client := range h.clients {
				if client.sessionID != "" {
					continue
				}

				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

			h.mutex.Unlock()
		}
	}
}

// BroadcastProgress sends a progress update to all relevant clients
func (h *ProgressHub) BroadcastProgress(sessionID, stage, message string) {
	h.broadcast <- &ProgressMessage{
		SessionID: sessionID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ClientCount returns the number of connected clients
func (h *ProgressHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWs handles WebSocket requests from clients
func (h *ProgressHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	// Optional subscription to a single session
	sessionID := r.URL.Query().Get("session_id")

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		logger:    h.logger,
		sessionID: sessionID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(60 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed,
// and unregisters the client when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
