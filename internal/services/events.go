package services

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event notifies connected apps about call lifecycle changes.
type Event struct {
	Type      string      `json:"type"`
	UserID    string      `json:"user_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventCallAnswered = "call_answered"
	EventCallRejected = "call_rejected"
	EventCallEnded    = "call_ended"
	EventSummaryReady = "summary_ready"
)

type EventClient struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan Event
	Hub    *EventHub
}

// EventHub fans call events out to the user's connected apps over
// WebSocket. Events addressed to a user only reach that user's
// clients; an empty user id broadcasts to everyone.
type EventHub struct {
	clients    map[string]*EventClient
	broadcast  chan Event
	register   chan *EventClient
	unregister chan *EventClient
	mutex      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[string]*EventClient),
		broadcast:  make(chan Event, 64),
		register:   make(chan *EventClient),
		unregister: make(chan *EventClient),
	}
}

func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			logrus.Infof("Event client %s connected for user %s", client.ID, client.UserID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				logrus.Infof("Event client %s disconnected", client.ID)
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			h.mutex.Lock()
			for _, client := range h.clients {
				if event.UserID == "" || client.UserID == event.UserID {
					select {
					case client.Send <- event:
					default:
						close(client.Send)
						delete(h.clients, client.ID)
					}
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues an event for delivery. Non-blocking; if the hub is
// saturated the event is dropped.
func (h *EventHub) Publish(eventType, userID string, data interface{}) {
	event := Event{
		Type:      eventType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- event:
	default:
		logrus.WithField("type", eventType).Warn("event hub saturated, dropping event")
	}
}

func (h *EventHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *EventHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Error("WebSocket upgrade failed:", err)
		return
	}

	userID := c.Query("user_id")
	client := &EventClient{
		ID:     fmt.Sprintf("client_%d", time.Now().UnixNano()),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 256),
		Hub:    h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *EventClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Clients only listen; inbound frames are drained to keep the
	// connection and its pong handler alive.
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *EventClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
