// Package screenshare tracks at most one active screen share per room and
// builds the signaling messages that move WebRTC offers, answers, and
// candidates between the sharer and its viewers.
package screenshare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/protocol"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

var (
	// ErrShareConflict means another user already shares in the room.
	ErrShareConflict = errors.New("screen share already active")
	// ErrNotSharer means the caller tried a sharer-only operation.
	ErrNotSharer = errors.New("user is not the active sharer")
	// ErrNoActiveShare means the room has no share to act on.
	ErrNoActiveShare = errors.New("no active screen share")
	// ErrViewerLimit means the share reached its viewer cap.
	ErrViewerLimit = errors.New("viewer limit reached")
)

// shareType is the only media source the server currently labels.
const shareType = "screen"

// Config bounds share lifetimes and audiences.
type Config struct {
	SessionTimeout time.Duration
	MaxViewers     int
}

// DefaultConfig expires shares after an hour and caps viewers at 100.
func DefaultConfig() Config {
	return Config{
		SessionTimeout: time.Hour,
		MaxViewers:     100,
	}
}

// ActiveShare is the state of one live screen share.
type ActiveShare struct {
	SharerID    string
	SharerName  string
	RoomID      string
	Nationality *string
	Data        types.ShareData
	StartedAt   time.Time
	SessionID   string
	Viewers     []string
}

// Manager indexes shares by room and keeps the inverse sharer index so a
// disconnect can find the share without scanning.
type Manager struct {
	cfg Config

	mu          sync.RWMutex
	shares      map[string]*ActiveShare
	sharerRooms map[string]string
	now         func() time.Time
}

// NewManager builds an empty share manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:         cfg,
		shares:      make(map[string]*ActiveShare),
		sharerRooms: make(map[string]string),
		now:         time.Now,
	}
}

// Start claims the room's share slot. A second user starting while a share is
// live gets ErrShareConflict naming the current sharer. The current sharer
// restarting keeps the slot but gets a fresh session id and an empty viewer
// list.
func (m *Manager) Start(roomID, userID, username string, nationality *string, data types.ShareData) (*ActiveShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.shares[roomID]; ok && existing.SharerID != userID {
		return nil, fmt.Errorf("%w: user %s is already sharing in room %s",
			ErrShareConflict, existing.SharerName, roomID)
	}

	share := &ActiveShare{
		SharerID:    userID,
		SharerName:  username,
		RoomID:      roomID,
		Nationality: nationality,
		Data:        data,
		StartedAt:   m.now(),
		SessionID:   uuid.NewString(),
		Viewers:     []string{},
	}
	m.shares[roomID] = share
	m.sharerRooms[userID] = roomID
	metrics.ActiveScreenShares.Set(float64(len(m.shares)))

	logging.Info(context.Background(), "screen share started",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("session_id", share.SessionID))
	return m.copyShareLocked(share), nil
}

// Stop releases the room's share slot. Only the active sharer may stop it.
func (m *Manager) Stop(roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[roomID]
	if !ok {
		return ErrNoActiveShare
	}
	if share.SharerID != userID {
		return ErrNotSharer
	}

	m.removeLocked(roomID, share)
	return nil
}

// RelayOffer builds the offer message for a single viewer. Only the sharer
// may send offers.
func (m *Manager) RelayOffer(roomID, userID, targetUserID string, data json.RawMessage) (protocol.ServerMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return nil, ErrNoActiveShare
	}
	if share.SharerID != userID {
		return nil, ErrNotSharer
	}
	return protocol.NewShareRelay(protocol.KindShareOffer, userID, roomID, targetUserID, data, protocol.NowMillis()), nil
}

// RelayAnswer builds the answer message for the target peer.
func (m *Manager) RelayAnswer(roomID, userID, targetUserID string, data json.RawMessage) (protocol.ServerMessage, error) {
	return m.relay(protocol.KindShareAnswer, roomID, userID, targetUserID, data)
}

// RelayCandidate builds the ICE candidate message for the target peer.
func (m *Manager) RelayCandidate(roomID, userID, targetUserID string, data json.RawMessage) (protocol.ServerMessage, error) {
	return m.relay(protocol.KindShareCandidate, roomID, userID, targetUserID, data)
}

func (m *Manager) relay(kind, roomID, userID, targetUserID string, data json.RawMessage) (protocol.ServerMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.shares[roomID]; !ok {
		return nil, ErrNoActiveShare
	}
	return protocol.NewShareRelay(kind, userID, roomID, targetUserID, data, protocol.NowMillis()), nil
}

// Ready builds the webrtc-ready broadcast. Only the sharer may announce
// readiness.
func (m *Manager) Ready(roomID, userID, username string) (protocol.ServerMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return nil, ErrNoActiveShare
	}
	if share.SharerID != userID {
		return nil, ErrNotSharer
	}
	return protocol.NewShareWebRTCReadyBroadcast(userID, roomID, username, share.Data, protocol.NowMillis()), nil
}

// AddViewer records a watcher. Adding twice is a no-op; the cap yields
// ErrViewerLimit. The sharer never appears in its own viewer list.
func (m *Manager) AddViewer(roomID, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[roomID]
	if !ok {
		return ErrNoActiveShare
	}
	if viewerID == share.SharerID {
		return nil
	}
	for _, v := range share.Viewers {
		if v == viewerID {
			return nil
		}
	}
	if len(share.Viewers) >= m.cfg.MaxViewers {
		return ErrViewerLimit
	}
	share.Viewers = append(share.Viewers, viewerID)
	return nil
}

// RemoveViewer drops a watcher; unknown viewers are ignored.
func (m *Manager) RemoveViewer(roomID, viewerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[roomID]
	if !ok {
		return
	}
	for i, v := range share.Viewers {
		if v == viewerID {
			share.Viewers = append(share.Viewers[:i], share.Viewers[i+1:]...)
			return
		}
	}
}

// JoinRequest validates a viewer's join against the room's sharer and builds
// the sharer-addressed notification. The sharer ID is returned so the caller
// can route the message.
func (m *Manager) JoinRequest(roomID, viewerID, viewerName, targetUserID string) (string, protocol.ServerMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return "", nil, ErrNoActiveShare
	}
	if share.SharerID != targetUserID {
		return "", nil, ErrNotSharer
	}
	msg := protocol.NewNewViewerJoined(viewerID, viewerName, roomID, share.SharerID, protocol.NowMillis())
	return share.SharerID, msg, nil
}

// OfferRequest validates a viewer's explicit offer request and builds the
// sharer-addressed message.
func (m *Manager) OfferRequest(roomID, viewerID, viewerName, targetUserID string) (string, protocol.ServerMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return "", nil, ErrNoActiveShare
	}
	if share.SharerID != targetUserID {
		return "", nil, ErrNotSharer
	}
	msg := protocol.NewViewerRequestsOffer(viewerID, viewerName, roomID, protocol.NowMillis())
	return share.SharerID, msg, nil
}

// UserDisconnected cleans up after a dropped connection: the user's own share
// is stopped (returning its room id) and the user is scrubbed from every
// viewer list.
func (m *Manager) UserDisconnected(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stoppedRoom := ""
	stopped := false
	if roomID, ok := m.sharerRooms[userID]; ok {
		if share, live := m.shares[roomID]; live {
			m.removeLocked(roomID, share)
			stoppedRoom, stopped = roomID, true
		} else {
			delete(m.sharerRooms, userID)
		}
	}

	for _, share := range m.shares {
		for i, v := range share.Viewers {
			if v == userID {
				share.Viewers = append(share.Viewers[:i], share.Viewers[i+1:]...)
				break
			}
		}
	}
	return stoppedRoom, stopped
}

// Active returns a copy of the room's share, or false when none is live.
func (m *Manager) Active(roomID string) (*ActiveShare, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return nil, false
	}
	return m.copyShareLocked(share), true
}

// OngoingInfo builds the late-joiner snapshot for the room's share.
func (m *Manager) OngoingInfo(roomID string) (types.OngoingScreenShareInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	share, ok := m.shares[roomID]
	if !ok {
		return types.OngoingScreenShareInfo{}, false
	}

	st := shareType
	sid := share.SessionID
	data := share.Data
	data.ShareType = &st
	data.SessionId = &sid

	return types.OngoingScreenShareInfo{
		UserId:      share.SharerID,
		Username:    share.SharerName,
		Nationality: share.Nationality,
		ShareData:   data,
		StartedAt:   share.StartedAt.UnixMilli(),
		ViewerCount: len(share.Viewers),
	}, true
}

// Count returns the number of live shares.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shares)
}

// ExpireSessions removes shares older than the session timeout and returns
// them so the caller can tell each room the share stopped.
func (m *Manager) ExpireSessions(now time.Time) []*ActiveShare {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*ActiveShare
	for roomID, share := range m.shares {
		if now.Sub(share.StartedAt) > m.cfg.SessionTimeout {
			expired = append(expired, m.copyShareLocked(share))
			m.removeLocked(roomID, share)
		}
	}
	return expired
}

func (m *Manager) removeLocked(roomID string, share *ActiveShare) {
	delete(m.shares, roomID)
	delete(m.sharerRooms, share.SharerID)
	metrics.ActiveScreenShares.Set(float64(len(m.shares)))

	logging.Info(context.Background(), "screen share stopped",
		zap.String("room_id", roomID),
		zap.String("user_id", share.SharerID),
		zap.String("session_id", share.SessionID))
}

func (m *Manager) copyShareLocked(share *ActiveShare) *ActiveShare {
	cp := *share
	cp.Viewers = append([]string(nil), share.Viewers...)
	return &cp
}
