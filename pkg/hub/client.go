package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds what clients may send us
	maxMessageSize = 64 * 1024
)

// Conn is the part of a websocket connection the client pumps use.
// *websocket.Conn from gofiber satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client represents a single websocket connection
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// NewClient creates a new client and registers it with the hub. If the hub
// has already stopped the client is closed straight away.
func NewClient(hub *Hub, conn Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 32),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		close(client.send)
	}
	return client
}

// Run starts the client's read and write pumps
// This should be called in the websocket handler
func (c *Client) Run() {
	go c.writePump()
	c.readPump() // Blocks until connection closes
}

// readPump keeps the connection alive and detects disconnection.
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
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients don't send anything we act on, but reading surfaces
		// disconnects and pongs.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine that writes to the connection.
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
				// Hub closed the channel - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if message.Type == BinaryMessage {
				wsType = websocket.BinaryMessage
			}

			if err := c.conn.WriteMessage(wsType, message.Data); err != nil {
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
