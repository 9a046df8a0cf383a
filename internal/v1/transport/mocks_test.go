package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// mockConn is an in-memory Conn. Reads block on the inbound channel; writes
// are recorded.
type mockConn struct {
	mu       sync.Mutex
	inbound  chan []byte
	written  [][]byte
	closed   bool
	writeErr error
}

func newMockConn() *mockConn {
	return &mockConn{inbound: make(chan []byte, 16)}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	data, ok := <-m.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, data, nil
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, data)
	}
	return nil
}

func (m *mockConn) SetWriteDeadline(time.Time) error        { return nil }
func (m *mockConn) SetReadDeadline(time.Time) error         { return nil }
func (m *mockConn) SetReadLimit(int64)                      {}
func (m *mockConn) SetPongHandler(func(appData string) error) {}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	return nil
}

func (m *mockConn) push(data []byte) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.inbound <- data
	}
}

func (m *mockConn) writtenFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

// mockHandler records frames and disconnects from the read pump.
type mockHandler struct {
	mu          sync.Mutex
	frames      [][]byte
	disconnects []types.ConnectionIdType
	done        chan struct{}
}

func newMockHandler() *mockHandler {
	return &mockHandler{done: make(chan struct{}, 16)}
}

func (h *mockHandler) HandleFrame(client types.ClientInterface, frame []byte) {
	h.mu.Lock()
	h.frames = append(h.frames, frame)
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *mockHandler) HandleDisconnect(client types.ClientInterface) {
	h.mu.Lock()
	h.disconnects = append(h.disconnects, client.GetID())
	h.mu.Unlock()
}

func (h *mockHandler) frameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *mockHandler) disconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.disconnects)
}

// mockClient is a hub-registrable client that records sends.
type mockClient struct {
	id     types.ConnectionIdType
	mu     sync.Mutex
	userID types.UserIdType
	roomID types.RoomIdType
	sent   [][]byte
	closed bool
}

func newMockClient(id string) *mockClient {
	return &mockClient{id: types.ConnectionIdType(id), userID: types.UserIdType(id)}
}

func (c *mockClient) GetID() types.ConnectionIdType { return c.id }

func (c *mockClient) GetUserID() types.UserIdType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *mockClient) SetUserID(id types.UserIdType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

func (c *mockClient) GetRoomID() types.RoomIdType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *mockClient) SetRoomID(id types.RoomIdType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

func (c *mockClient) SendRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
}

func (c *mockClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
