package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

func strPtr(s string) *string { return &s }

func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom("lobby", 10)

	assert.Equal(t, "lobby", r.ID())
	assert.Equal(t, "Room lobby", r.Name())
	assert.Equal(t, 10, r.Capacity())
	assert.Equal(t, DefaultScenePreset, r.ScenePreset())
	assert.Nil(t, r.Weather())
	assert.Nil(t, r.TimeOfDay())
	assert.Equal(t, 0, r.UserCount())
}

func TestAddUserAndGet(t *testing.T) {
	r := NewRoom("lobby", 10)

	require.True(t, r.AddUser("u1", "Alice", strPtr("FR")))

	u, ok := r.GetUser("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Username)
	assert.Equal(t, "FR", *u.Nationality)
	assert.Equal(t, 1, r.UserCount())
}

func TestAddUserAtCapacity(t *testing.T) {
	r := NewRoom("lobby", 2)

	require.True(t, r.AddUser("u1", "Alice", nil))
	require.True(t, r.AddUser("u2", "Bob", nil))
	assert.False(t, r.AddUser("u3", "Carol", nil))

	// Rejoining under an existing id is a replacement, not a new slot.
	assert.True(t, r.AddUser("u2", "Bobby", nil))
	assert.Equal(t, "Bobby", r.Username("u2"))
}

func TestRemoveUser(t *testing.T) {
	r := NewRoom("lobby", 10)
	r.AddUser("u1", "Alice", nil)

	r.RemoveUser("u1")
	_, ok := r.GetUser("u1")
	assert.False(t, ok)

	r.RemoveUser("u1") // absent, no-op
	assert.Equal(t, 0, r.UserCount())
}

func TestUsernameFallback(t *testing.T) {
	r := NewRoom("lobby", 10)
	assert.Equal(t, types.DefaultUsername, r.Username("ghost"))
}

func TestUpdatePosition(t *testing.T) {
	r := NewRoom("lobby", 10)
	r.AddUser("u1", "Alice", nil)

	pos := types.Position{X: 1, Y: 2, Z: 3}
	require.True(t, r.UpdatePosition("u1", pos))

	u, _ := r.GetUser("u1")
	require.NotNil(t, u.Position)
	assert.Equal(t, pos, *u.Position)

	assert.False(t, r.UpdatePosition("ghost", pos))
}

func TestUpdateScene(t *testing.T) {
	r := NewRoom("lobby", 10)

	require.True(t, r.UpdateScene("beach"))
	assert.Equal(t, "beach", r.ScenePreset())

	assert.False(t, r.UpdateScene(""))
	assert.Equal(t, "beach", r.ScenePreset())
}

func TestUpdateWeather(t *testing.T) {
	r := NewRoom("lobby", 10)

	r.UpdateWeather("rain", 0.5, "u1")

	w := r.Weather()
	require.NotNil(t, w)
	assert.Equal(t, "rain", w.Type)
	assert.Equal(t, 0.5, w.Intensity)
	assert.Equal(t, "u1", w.ChangedBy)
	assert.False(t, w.ChangedAt.IsZero())
}

func TestUpdateTime(t *testing.T) {
	r := NewRoom("lobby", 10)

	hour := 22
	r.UpdateTime("night", &hour, "u1")

	ts := r.TimeOfDay()
	require.NotNil(t, ts)
	assert.Equal(t, "night", ts.TimeOfDay)
	assert.Equal(t, 22, *ts.Hour)
	assert.Equal(t, "u1", ts.ChangedBy)
}

func TestSnapshot(t *testing.T) {
	r := NewRoom("lobby", 10)
	r.AddUser("u1", "Alice", strPtr("FR"))
	r.AddUser("u2", "Bob", nil)
	r.UpdateScene("space")

	info := r.Snapshot()
	assert.Equal(t, "lobby", info.RoomId)
	assert.Equal(t, "Room lobby", info.Name)
	assert.Equal(t, 2, info.UserCount)
	assert.Equal(t, 10, info.MaxUsers)
	assert.Equal(t, "space", info.ScenePreset)
	assert.Len(t, info.ActiveUsers, 2)
	assert.Nil(t, info.OngoingScreenShare)
}

func TestDemographics(t *testing.T) {
	r := NewRoom("lobby", 10)
	r.AddUser("u1", "Alice", strPtr("FR"))
	r.AddUser("u2", "Bob", strPtr("FR"))
	r.AddUser("u3", "Carol", nil)
	r.AddUser("u4", "Dan", strPtr(""))

	d := r.Demographics()
	assert.Equal(t, 2, d["FR"])
	assert.Equal(t, 2, d["UN"])
}

func TestLastActivityAdvances(t *testing.T) {
	r := NewRoom("lobby", 10)
	before := r.LastActivity()

	r.AddUser("u1", "Alice", nil)
	assert.False(t, r.LastActivity().Before(before))
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(50, 10)

	r1, err := m.GetOrCreate("a")
	require.NoError(t, err)
	r2, err := m.GetOrCreate("a")
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, m.Count())
}

func TestManagerRoomLimit(t *testing.T) {
	m := NewManager(2, 10)

	_, err := m.GetOrCreate("a")
	require.NoError(t, err)
	_, err = m.GetOrCreate("b")
	require.NoError(t, err)

	_, err = m.GetOrCreate("c")
	assert.ErrorIs(t, err, ErrRoomLimit)

	// Existing rooms are still reachable at the cap.
	_, err = m.GetOrCreate("a")
	assert.NoError(t, err)
}

func TestManagerGetAndRooms(t *testing.T) {
	m := NewManager(50, 10)

	_, ok := m.Get("a")
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		_, err := m.GetOrCreate(fmt.Sprintf("room-%d", i))
		require.NoError(t, err)
	}

	r, ok := m.Get("room-1")
	require.True(t, ok)
	assert.Equal(t, "room-1", r.ID())
	assert.Len(t, m.Rooms(), 3)
}
