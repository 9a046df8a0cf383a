// Package transport owns the WebSocket plumbing: one Client per socket with
// its read/write pumps, and the Hub that indexes live connections for
// directed sends and room broadcasts.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps inbound frames at 64 KiB.
	maxMessageSize = 64 * 1024
	// sendBufferSize is the per-connection outbound queue depth.
	sendBufferSize = 256
)

// Conn is the subset of *websocket.Conn the client needs; tests substitute
// an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// FrameHandler receives decoded-yet frames and disconnect notifications from
// a client's read pump.
type FrameHandler interface {
	HandleFrame(client types.ClientInterface, frame []byte)
	HandleDisconnect(client types.ClientInterface)
}

// Client is one socket connection. Until auth binds a user, the user id
// equals the connection id.
type Client struct {
	conn    Conn
	handler FrameHandler

	id types.ConnectionIdType

	mu     sync.RWMutex
	userID types.UserIdType
	roomID types.RoomIdType
	closed bool

	send      chan []byte
	closeOnce sync.Once
}

// NewClient wraps an accepted connection. Pumps start with Start.
func NewClient(conn Conn, handler FrameHandler) *Client {
	id := types.ConnectionIdType(uuid.NewString())
	return &Client{
		conn:    conn,
		handler: handler,
		id:      id,
		userID:  types.UserIdType(id),
		send:    make(chan []byte, sendBufferSize),
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// GetID returns the connection id.
func (c *Client) GetID() types.ConnectionIdType { return c.id }

// GetUserID returns the effective user id.
func (c *Client) GetUserID() types.UserIdType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetUserID binds the authenticated user id.
func (c *Client) SetUserID(id types.UserIdType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// GetRoomID returns the bound room, empty until auth.
func (c *Client) GetRoomID() types.RoomIdType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// SetRoomID binds the room.
func (c *Client) SetRoomID(id types.RoomIdType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

// SendRaw enqueues a frame without blocking. When the buffer is full the
// frame is dropped and counted; a slow reader must not stall the hub.
// The read lock is held across the channel send so Disconnect cannot close
// the channel while a send is in flight.
func (c *Client) SendRaw(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
		metrics.MessagesSent.Inc()
	default:
		metrics.MessagesDropped.Inc()
		logging.Warn(context.Background(), "send buffer full, dropping frame",
			zap.String("connection_id", string(c.id)),
			zap.String("user_id", string(c.userID)))
	}
}

// Disconnect closes the send channel, which makes the write pump emit a
// close frame and tear the socket down. Safe to call more than once.
// closed and the channel close flip under the same critical section.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// readPump delivers inbound text frames to the handler until the socket
// errors, then runs disconnect cleanup exactly once.
func (c *Client) readPump() {
	defer func() {
		c.handler.HandleDisconnect(c)
		c.Disconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn(context.Background(), "unexpected socket close",
					zap.String("connection_id", string(c.id)), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handler.HandleFrame(c, data)
	}
}

// writePump drains the send channel and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Warn(context.Background(), "write failed",
					zap.String("connection_id", string(c.id)), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
