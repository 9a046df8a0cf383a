package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/config"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// mockClient stands in for a transport.Client and records every frame the
// coordinator sends it.
type mockClient struct {
	id types.ConnectionIdType

	mu     sync.Mutex
	userID types.UserIdType
	roomID types.RoomIdType
	frames [][]byte
	closed bool
}

func newMockClient() *mockClient {
	id := types.ConnectionIdType(uuid.NewString())
	return &mockClient{id: id, userID: types.UserIdType(id)}
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
	c.frames = append(c.frames, data)
}

func (c *mockClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// received decodes every recorded frame into generic maps.
func (c *mockClient) received(t testing.TB) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// byType returns the recorded messages with the given type tag.
func (c *mockClient) byType(t testing.TB, kind string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.received(t) {
		if m["type"] == kind {
			out = append(out, m)
		}
	}
	return out
}

// lastOfType returns the newest recorded message of the kind, failing when
// none exists.
func (c *mockClient) lastOfType(t testing.TB, kind string) map[string]any {
	t.Helper()
	msgs := c.byType(t, kind)
	require.NotEmpty(t, msgs, "no %s message received", kind)
	return msgs[len(msgs)-1]
}

func (c *mockClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func testConfig() *config.Realtime {
	return &config.Realtime{
		Host:                       "127.0.0.1",
		Port:                       9001,
		MaxConnections:             100,
		MaxRooms:                   5,
		MaxUsersPerRoom:            4,
		RateLimitMessagesPerSecond: 10,
		RateLimitBurst:             10,
		MaxMessagesPerRoom:         100,
		MaxRoomsInCache:            200,
		MessageTTLHours:            24,
		MaxScreenSharesPerRoom:     1,
		ScreenShareTimeoutSeconds:  3600,
		MaxViewersPerShare:         100,
	}
}

func newTestCoordinator() *Coordinator {
	return NewCoordinator(testConfig())
}

// frame builds a JSON frame from a map.
func frame(t testing.TB, fields map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return data
}

// authedClient registers and authenticates a client into the room.
func authedClient(t testing.TB, co *Coordinator, userID, username, roomID string) *mockClient {
	t.Helper()
	c := newMockClient()
	require.NoError(t, co.hub.Register(c))
	co.HandleFrame(c, frame(t, map[string]any{
		"type": "auth", "user_id": userID, "username": username, "room_id": roomID,
	}))
	require.NotEmpty(t, c.byType(t, "auth_success"), "auth failed for %s", userID)
	return c
}
