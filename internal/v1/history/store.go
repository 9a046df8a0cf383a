// Package history keeps a short per-room replay buffer of broadcast
// messages so late joiners see recent context.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/protocol"
)

// Config controls retention for the store.
type Config struct {
	MaxMessagesPerRoom int
	MaxRoomsInCache    int
	MessageTTL         time.Duration
}

// DefaultConfig keeps the last 100 messages per room for 24 hours across at
// most 200 rooms.
func DefaultConfig() Config {
	return Config{
		MaxMessagesPerRoom: 100,
		MaxRoomsInCache:    200,
		MessageTTL:         24 * time.Hour,
	}
}

// roomIdleTimeout is how long a room must be untouched before the sweep may
// evict it to get back under the cache cap.
const roomIdleTimeout = 4 * time.Hour

// Stored is one retained message with its insertion timestamp in UNIX
// milliseconds.
type Stored struct {
	Message   protocol.ServerMessage
	RoomID    string
	Timestamp int64
}

// roomHistory is the per-room deque. Each room has its own lock so writes
// never block other rooms.
type roomHistory struct {
	mu           sync.Mutex
	messages     []Stored
	lastAccessed time.Time
}

// Store maps room ids to their replay buffers.
type Store struct {
	cfg   Config
	mu    sync.RWMutex
	rooms map[string]*roomHistory
	now   func() time.Time
}

// NewStore builds an empty history store.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:   cfg,
		rooms: make(map[string]*roomHistory),
		now:   time.Now,
	}
}

// Add retains msg in the room's buffer if its kind is replayable. Presence
// churn and signaling are never stored.
func (s *Store) Add(roomID string, msg protocol.ServerMessage) {
	if !protocol.HistoryKinds.Has(msg.ServerKind()) {
		return
	}

	now := s.now()
	stored := Stored{
		Message:   msg,
		RoomID:    roomID,
		Timestamp: now.UnixMilli(),
	}

	rh := s.getOrCreate(roomID)

	rh.mu.Lock()
	defer rh.mu.Unlock()

	for len(rh.messages) >= s.cfg.MaxMessagesPerRoom {
		rh.messages = rh.messages[1:]
	}
	rh.messages = append(rh.messages, stored)
	rh.lastAccessed = now
}

// Recent returns the newest n messages in insertion order.
func (s *Store) Recent(roomID string, n int) []Stored {
	rh := s.get(roomID)
	if rh == nil {
		return nil
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.lastAccessed = s.now()

	start := len(rh.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Stored, len(rh.messages)-start)
	copy(out, rh.messages[start:])
	return out
}

// Since returns every message newer than ts, in insertion order.
func (s *Store) Since(roomID string, ts int64) []Stored {
	rh := s.get(roomID)
	if rh == nil {
		return nil
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.lastAccessed = s.now()

	var out []Stored
	for _, m := range rh.messages {
		if m.Timestamp > ts {
			out = append(out, m)
		}
	}
	return out
}

// Stats describes one room's buffer.
type Stats struct {
	TotalMessages int
	OldestMillis  int64
	NewestMillis  int64
	LastAccessed  time.Time
}

// StatsFor reports buffer statistics for a room; ok is false when the room
// has no history.
func (s *Store) StatsFor(roomID string) (Stats, bool) {
	rh := s.get(roomID)
	if rh == nil {
		return Stats{}, false
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()

	st := Stats{
		TotalMessages: len(rh.messages),
		LastAccessed:  rh.lastAccessed,
	}
	if len(rh.messages) > 0 {
		st.OldestMillis = rh.messages[0].Timestamp
		st.NewestMillis = rh.messages[len(rh.messages)-1].Timestamp
	}
	return st, true
}

// RoomCount returns the number of rooms with retained history.
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Sweep evicts expired messages, then evicts whole idle rooms while the room
// count exceeds the cache cap, oldest-accessed first. The session layer runs
// it hourly.
func (s *Store) Sweep() {
	now := s.now()
	cutoff := now.UnixMilli() - s.cfg.MessageTTL.Milliseconds()

	s.mu.RLock()
	snapshot := make(map[string]*roomHistory, len(s.rooms))
	for id, rh := range s.rooms {
		snapshot[id] = rh
	}
	s.mu.RUnlock()

	type roomAge struct {
		id           string
		lastAccessed time.Time
	}
	ages := make([]roomAge, 0, len(snapshot))

	for id, rh := range snapshot {
		rh.mu.Lock()
		drop := 0
		for drop < len(rh.messages) && rh.messages[drop].Timestamp < cutoff {
			drop++
		}
		if drop > 0 {
			rh.messages = rh.messages[drop:]
		}
		ages = append(ages, roomAge{id: id, lastAccessed: rh.lastAccessed})
		rh.mu.Unlock()
	}

	if len(snapshot) > s.cfg.MaxRoomsInCache {
		sort.Slice(ages, func(i, j int) bool {
			return ages[i].lastAccessed.Before(ages[j].lastAccessed)
		})

		excess := len(snapshot) - s.cfg.MaxRoomsInCache
		s.mu.Lock()
		for i := 0; i < excess && i < len(ages); i++ {
			if now.Sub(ages[i].lastAccessed) >= roomIdleTimeout {
				delete(s.rooms, ages[i].id)
				logging.Debug(context.Background(), "evicted idle room history",
					zap.String("room_id", ages[i].id))
			}
		}
		s.mu.Unlock()
	}
}

func (s *Store) get(roomID string) *roomHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

func (s *Store) getOrCreate(roomID string) *roomHistory {
	s.mu.RLock()
	rh, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return rh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rh, ok = s.rooms[roomID]; ok {
		return rh
	}
	rh = &roomHistory{lastAccessed: s.now()}
	s.rooms[roomID] = rh
	return rh
}
