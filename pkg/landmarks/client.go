// Package landmarks talks to the facial landmark sidecar. The sidecar runs
// the face mesh model and computes eye aspect ratio, gaze score and head pose
// for each frame it is sent.
package landmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
)

// ErrSidecar is returned when the sidecar reports a failure of its own.
var ErrSidecar = errors.New("landmarks: sidecar error")

// Config configures the sidecar connection.
type Config struct {
	URL              string        // Websocket endpoint
	HandshakeTimeout time.Duration // Dial timeout
	ReplyTimeout     time.Duration // Wait for one frame's reply
}

// DefaultConfig points at a sidecar on localhost.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://127.0.0.1:8765/landmarks",
		HandshakeTimeout: 5 * time.Second,
		ReplyTimeout:     2 * time.Second,
	}
}

// Reply is the sidecar's answer for one frame.
type Reply struct {
	Face  bool    `json:"face"`
	EAR   float64 `json:"ear"`
	Gaze  float64 `json:"gaze"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Error string  `json:"error,omitempty"`
}

// Client sends JPEG frames as binary messages and reads one JSON reply per
// frame. The connection is opened on first use and reopened on the call
// after any failure.
type Client struct {
	config Config
	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient returns a client for cfg. No connection is made yet.
func NewClient(cfg Config) *Client {
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultConfig().ReplyTimeout
	}
	return &Client{
		config: cfg,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}
}

// Request sends frame and waits for its reply.
func (c *Client) Request(ctx context.Context, frame []byte) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
		if err != nil {
			return Reply{}, fmt.Errorf("connect to landmark sidecar: %w", err)
		}
		log.Info("connected to landmark sidecar", "url", c.config.URL)
		c.conn = conn
	}

	deadline := time.Now().Add(c.config.ReplyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.dropLocked()
		return Reply{}, fmt.Errorf("send frame: %w", err)
	}

	c.conn.SetReadDeadline(deadline)
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	var reply Reply
	if err := json.Unmarshal(msg, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" {
		return reply, fmt.Errorf("%w: %s", ErrSidecar, reply.Error)
	}
	return reply, nil
}

// Extract turns the sidecar's reply for frame into a scorer input. Any
// failure becomes a Failed input so the monitoring loop can log it and move
// on.
func (c *Client) Extract(ctx context.Context, frame []byte) attention.Input {
	reply, err := c.Request(ctx, frame)
	if err != nil {
		return attention.Failed(err)
	}
	if !reply.Face {
		return attention.NoFace()
	}
	return attention.Detected(attention.Signals{
		EAR:   reply.EAR,
		Gaze:  reply.Gaze,
		Roll:  reply.Roll,
		Pitch: reply.Pitch,
		Yaw:   reply.Yaw,
	})
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the connection if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}
