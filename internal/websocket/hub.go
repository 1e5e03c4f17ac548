// Package websocket pushes live availability and queue events to staff
// screens. Clients subscribe to one car wash or to all of them.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"carwash/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the envelope sent to clients.
type Event struct {
	Event     string      `json:"event"`
	CarWashID uuid.UUID   `json:"car_wash_id"`
	Data      interface{} `json:"data,omitempty"`
	TS        time.Time   `json:"ts"`
}

type message struct {
	carWashID uuid.UUID
	payload   []byte
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	CarWashID uuid.UUID // uuid.Nil receives every car wash
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the dispatch loop. It returns when stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debugf("websocket client connected (car wash %s)", client.CarWashID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				logger.Debugf("websocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.CarWashID != uuid.Nil && client.CarWashID != msg.carWashID {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join registers a client. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters a client, or returns at once when the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for the subscribers of carWashID. It never
// blocks; events are dropped when the hub is saturated.
func (h *Hub) Publish(carWashID uuid.UUID, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, CarWashID: carWashID, Data: data, TS: time.Now().UTC()})
	if err != nil {
		logger.Errorf("websocket: failed to encode %s event: %v", event, err)
		return
	}
	select {
	case h.broadcast <- message{carWashID: carWashID, payload: payload}:
	default:
		logger.Warnf("websocket: hub saturated, dropping %s event", event)
	}
}

func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warnf("websocket read error: %v", err)
			}
			break
		}
	}
}

// ServeWs authenticates the token query param and upgrades the request.
// An optional car_wash query param narrows the subscription.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		logger.Warnf("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		logger.Warnf("websocket connection rejected: invalid token: %v", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var carWashID uuid.UUID
	if raw := c.Query("car_wash"); raw != "" {
		if carWashID, err = uuid.Parse(raw); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), CarWashID: carWashID}
	if !client.Hub.join(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
