// Package room holds the in-memory model for a 3D room: its members, their
// positions, and the shared environment state (scene, weather, time of day).
package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// DefaultScenePreset is the environment every room starts with.
const DefaultScenePreset = "forest"

// DefaultCapacity is the per-room user limit when the caller does not set one.
const DefaultCapacity = 50

// unknownNationality buckets users that never reported a nationality.
const unknownNationality = "UN"

// User is one member of a room.
type User struct {
	ID          string
	Username    string
	Position    *types.Position
	Nationality *string
	JoinedAt    time.Time
	LastSeen    time.Time
}

// WeatherState is the room's current weather, set by a user.
type WeatherState struct {
	Type      string
	Intensity float64
	ChangedBy string
	ChangedAt time.Time
}

// TimeState is the room's current time of day, set by a user.
type TimeState struct {
	TimeOfDay string
	Hour      *int
	ChangedBy string
	ChangedAt time.Time
}

// Room is a single shared space. All state is guarded by mu; methods with the
// Locked suffix require the caller to hold it.
type Room struct {
	mu sync.RWMutex

	id           string
	name         string
	capacity     int
	createdAt    time.Time
	lastActivity time.Time

	users       map[string]*User
	scenePreset string
	weather     *WeatherState
	timeOfDay   *TimeState
}

// NewRoom builds an empty room with the default scene.
func NewRoom(id string, capacity int) *Room {
	now := time.Now()
	return &Room{
		id:           id,
		name:         fmt.Sprintf("Room %s", id),
		capacity:     capacity,
		createdAt:    now,
		lastActivity: now,
		users:        make(map[string]*User),
		scenePreset:  DefaultScenePreset,
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// Capacity returns the maximum number of users.
func (r *Room) Capacity() int { return r.capacity }

// AddUser registers a member. Joining again under the same user id replaces
// the previous entry. Returns false when the room is full.
func (r *Room) AddUser(userID, username string, nationality *string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[userID]; !exists && len(r.users) >= r.capacity {
		return false
	}

	now := time.Now()
	r.users[userID] = &User{
		ID:          userID,
		Username:    username,
		Nationality: nationality,
		JoinedAt:    now,
		LastSeen:    now,
	}
	r.touchLocked()
	return true
}

// RemoveUser drops a member; removing an absent user is a no-op.
func (r *Room) RemoveUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, userID)
	r.touchLocked()
}

// GetUser returns a copy of the member, or false when absent.
func (r *Room) GetUser(userID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Username resolves a member's display name, falling back to "User" when the
// id is not in the room.
func (r *Room) Username(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[userID]; ok {
		return u.Username
	}
	return types.DefaultUsername
}

// UpdatePosition records a member's position and refreshes last-seen. Returns
// false when the user is not in the room.
func (r *Room) UpdatePosition(userID string, pos types.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return false
	}
	u.Position = &pos
	u.LastSeen = time.Now()
	r.touchLocked()
	return true
}

// Users returns a snapshot of all members.
func (r *Room) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out
}

// UserCount returns the number of members.
func (r *Room) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// UpdateScene swaps the scene preset. Empty presets are rejected so the
// invariant that a room always has a scene holds.
func (r *Room) UpdateScene(preset string) bool {
	if preset == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenePreset = preset
	r.touchLocked()
	return true
}

// ScenePreset returns the current scene.
func (r *Room) ScenePreset() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenePreset
}

// UpdateWeather records the room weather and who changed it.
func (r *Room) UpdateWeather(weatherType string, intensity float64, changedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.weather = &WeatherState{
		Type:      weatherType,
		Intensity: intensity,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	}
	r.touchLocked()
}

// Weather returns the current weather state, or nil when never set.
func (r *Room) Weather() *WeatherState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.weather == nil {
		return nil
	}
	w := *r.weather
	return &w
}

// UpdateTime records the room's time of day and who changed it.
func (r *Room) UpdateTime(timeOfDay string, hour *int, changedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timeOfDay = &TimeState{
		TimeOfDay: timeOfDay,
		Hour:      hour,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	}
	r.touchLocked()
}

// TimeOfDay returns the current time state, or nil when never set.
func (r *Room) TimeOfDay() *TimeState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.timeOfDay == nil {
		return nil
	}
	t := *r.timeOfDay
	return &t
}

// LastActivity returns the last mutation instant.
func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// Snapshot builds the wire view of the room sent with auth_success.
func (r *Room) Snapshot() types.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]types.UserInfo, 0, len(r.users))
	for _, u := range r.users {
		active = append(active, types.UserInfo{
			UserId:      u.ID,
			Username:    u.Username,
			Position:    u.Position,
			LastSeen:    u.LastSeen.UnixMilli(),
			Nationality: u.Nationality,
		})
	}

	return types.RoomInfo{
		RoomId:      r.id,
		Name:        r.name,
		UserCount:   len(r.users),
		MaxUsers:    r.capacity,
		ScenePreset: r.scenePreset,
		ActiveUsers: active,
	}
}

// Demographics counts members per nationality. Users with no nationality are
// grouped under "UN".
func (r *Room) Demographics() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, u := range r.users {
		key := unknownNationality
		if u.Nationality != nil && *u.Nationality != "" {
			key = *u.Nationality
		}
		out[key]++
	}
	return out
}

func (r *Room) touchLocked() {
	r.lastActivity = time.Now()
}
