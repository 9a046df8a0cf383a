package transport

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// ErrConnectionLimit is returned when the hub is at its connection cap.
var ErrConnectionLimit = errors.New("connection limit reached")

// Hub indexes every live connection. It knows nothing about message
// semantics; the session layer decides what to send where.
type Hub struct {
	mu             sync.RWMutex
	clients        map[types.ConnectionIdType]types.ClientInterface
	maxConnections int
}

// NewHub builds an empty hub with the given connection cap.
func NewHub(maxConnections int) *Hub {
	return &Hub{
		clients:        make(map[types.ConnectionIdType]types.ClientInterface),
		maxConnections: maxConnections,
	}
}

// Register adds a connection, refusing at the cap. The HTTP layer checks the
// cap before upgrading too; this is the authoritative gate.
func (h *Hub) Register(client types.ClientInterface) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxConnections {
		return ErrConnectionLimit
	}
	h.clients[client.GetID()] = client
	return nil
}

// Unregister drops a connection; unknown ids are ignored.
func (h *Hub) Unregister(connID types.ConnectionIdType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Bind records the authenticated identity on the connection. When another
// connection is already bound to the same user in the same room, the older
// one is returned so the caller can evict it.
func (h *Hub) Bind(connID types.ConnectionIdType, userID types.UserIdType, roomID types.RoomIdType) types.ClientInterface {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return nil
	}

	var evicted types.ClientInterface
	for id, other := range h.clients {
		if id != connID && other.GetUserID() == userID && other.GetRoomID() == roomID {
			evicted = other
			delete(h.clients, id)
			logging.Info(context.Background(), "evicting duplicate connection",
				zap.String("user_id", string(userID)),
				zap.String("room_id", string(roomID)),
				zap.String("old_connection_id", string(id)),
				zap.String("new_connection_id", string(connID)))
			break
		}
	}

	client.SetUserID(userID)
	client.SetRoomID(roomID)
	return evicted
}

// Get returns the connection, or false when absent.
func (h *Hub) Get(connID types.ConnectionIdType) (types.ClientInterface, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// SendToConnection delivers a frame to one connection.
func (h *Hub) SendToConnection(connID types.ConnectionIdType, payload []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	client.SendRaw(payload)
	return true
}

// SendToUser delivers a frame to the first connection bound to the user in
// the room.
func (h *Hub) SendToUser(roomID types.RoomIdType, userID types.UserIdType, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.GetRoomID() == roomID && client.GetUserID() == userID {
			client.SendRaw(payload)
			return true
		}
	}
	return false
}

// BroadcastToRoom delivers a frame to every connection bound to the room,
// skipping connections bound to excludeUserID when it is non-empty.
func (h *Hub) BroadcastToRoom(roomID types.RoomIdType, payload []byte, excludeUserID types.UserIdType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.GetRoomID() != roomID {
			continue
		}
		if excludeUserID != "" && client.GetUserID() == excludeUserID {
			continue
		}
		client.SendRaw(payload)
		sent++
	}
	return sent
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every registered connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]types.ClientInterface, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[types.ConnectionIdType]types.ClientInterface)
	h.mu.Unlock()

	for _, c := range clients {
		c.Disconnect()
	}
	logging.Info(context.Background(), "all connections closed",
		zap.Int("count", len(clients)))
}
