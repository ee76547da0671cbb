package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/identity"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send small control messages.
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for mobile app access
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	ID string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	caller identity.Caller
}

// controlMessage is what subscribers may send
type controlMessage struct {
	Type  string `json:"type"`
	MsgID string `json:"msgId,omitempty"`
}

// readPump answers PING messages and detects disconnects
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed", zap.String("conn", c.ID), zap.Error(err))
			}
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "PING" {
			c.trySend(map[string]string{"type": "PONG", "msgId": msg.MsgID})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a JSON message unless the buffer is full or the hub has
// already closed it
func (c *Client) trySend(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWs upgrades an authenticated request and subscribes it to visit events
func ServeWs(hub *Hub, caller identity.Caller, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		ID:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		caller: caller,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
