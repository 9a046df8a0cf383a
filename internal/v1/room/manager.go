package room

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
)

// ErrRoomLimit is returned when creating another room would exceed the
// server-wide cap.
var ErrRoomLimit = errors.New("room limit reached")

// Manager owns every live room. Rooms are created lazily on first join and
// live for the rest of the process.
type Manager struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	maxRooms     int
	roomCapacity int
}

// NewManager builds an empty manager enforcing the given caps.
func NewManager(maxRooms, roomCapacity int) *Manager {
	return &Manager{
		rooms:        make(map[string]*Room),
		maxRooms:     maxRooms,
		roomCapacity: roomCapacity,
	}
}

// GetOrCreate returns the room, creating it when absent. Creation fails with
// ErrRoomLimit at the cap.
func (m *Manager) GetOrCreate(roomID string) (*Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[roomID]; ok {
		return r, nil
	}
	if len(m.rooms) >= m.maxRooms {
		return nil, ErrRoomLimit
	}

	r = NewRoom(roomID, m.roomCapacity)
	m.rooms[roomID] = r
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	logging.Info(context.Background(), "room created",
		zap.String("room_id", roomID),
		zap.Int("capacity", m.roomCapacity))
	return r, nil
}

// Get returns the room, or false when it does not exist.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Rooms returns a snapshot of every live room.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}
