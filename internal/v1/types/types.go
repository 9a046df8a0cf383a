package types

// --- Core Domain Types ---

// ConnectionIdType represents a unique identifier for a socket connection.
type ConnectionIdType string

// UserIdType represents a user identity. It is client-supplied on auth, or a
// synthesized guest identifier, and doubles as the connection id before auth.
type UserIdType string

// RoomIdType represents a unique identifier for a room.
type RoomIdType string

// UsernameType represents the human-readable name for a user.
type UsernameType string

// GuestIdPrefix marks identifiers synthesized for unauthenticated users.
const GuestIdPrefix = "guest_"

// DefaultUsername is the display name fallback when a room lookup misses.
const DefaultUsername = "User"

// GuestUsername is the display name assigned to synthesized guest users.
const GuestUsername = "Guest"

// --- Wire Sub-Structures ---

// Position is a point in the 3D room space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AvatarInfo describes how a user is rendered. The server never interprets
// it; it only echoes defaults until clients send their own.
type AvatarInfo struct {
	AvatarType  string   `json:"avatar_type"`
	Color       string   `json:"color"`
	Accessories []string `json:"accessories"`
}

// DefaultAvatar returns the avatar handed to users that never picked one.
func DefaultAvatar() *AvatarInfo {
	return &AvatarInfo{
		AvatarType:  "default",
		Color:       "#4CAF50",
		Accessories: []string{},
	}
}

// UserInfo is the wire snapshot of a room member.
type UserInfo struct {
	UserId      string      `json:"user_id"`
	Username    string      `json:"username"`
	Position    *Position   `json:"position,omitempty"`
	Avatar      *AvatarInfo `json:"avatar,omitempty"`
	IsTyping    bool        `json:"is_typing"`
	LastSeen    int64       `json:"last_seen"`
	Nationality *string     `json:"nationality,omitempty"`
}

// ShareData carries the client-chosen screen share parameters. ShareType is
// filled by the server in outbound snapshots.
type ShareData struct {
	ProjectionMode string  `json:"projection_mode"`
	Quality        string  `json:"quality"`
	ShareType      *string `json:"share_type,omitempty"`
	SessionId      *string `json:"session_id,omitempty"`
}

// OngoingScreenShareInfo is the share snapshot embedded in room_info and in
// the standalone ongoing_screen_share message sent to late joiners.
type OngoingScreenShareInfo struct {
	UserId      string    `json:"user_id"`
	Username    string    `json:"username"`
	Nationality *string   `json:"nationality,omitempty"`
	ShareData   ShareData `json:"share_data"`
	StartedAt   int64     `json:"started_at"`
	ViewerCount int       `json:"viewer_count"`
}

// RoomInfo is the room snapshot returned with auth_success.
type RoomInfo struct {
	RoomId             string                  `json:"room_id"`
	Name               string                  `json:"name"`
	UserCount          int                     `json:"user_count"`
	MaxUsers           int                     `json:"max_users"`
	ScenePreset        string                  `json:"scene_preset"`
	ActiveUsers        []UserInfo              `json:"active_users"`
	OngoingScreenShare *OngoingScreenShareInfo `json:"ongoing_screen_share,omitempty"`
}

// --- Shared Interfaces ---

// ClientInterface defines the behavior the session and room layers need from
// a connection without depending on the transport package.
type ClientInterface interface {
	GetID() ConnectionIdType
	GetUserID() UserIdType
	SetUserID(UserIdType)
	GetRoomID() RoomIdType
	SetRoomID(RoomIdType)
	SendRaw(data []byte)
	Disconnect()
}
