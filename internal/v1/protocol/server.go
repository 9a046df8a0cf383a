package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// ServerMessage is implemented by every outbound message kind. The Type field
// of each struct is fixed by its constructor so Encode produces the flat
// tagged object clients expect.
type ServerMessage interface {
	ServerKind() string
}

// Encode serializes one outbound message into a text frame.
func Encode(msg ServerMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.ServerKind(), err)
	}
	return data, nil
}

// NowMillis returns the server timestamp used on outbound messages.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// AuthSuccess confirms a join and carries the room snapshot.
type AuthSuccess struct {
	Type     string         `json:"type"`
	UserID   string         `json:"user_id"`
	RoomID   string         `json:"room_id"`
	RoomInfo types.RoomInfo `json:"room_info"`
}

func NewAuthSuccess(userID, roomID string, info types.RoomInfo) *AuthSuccess {
	return &AuthSuccess{Type: KindAuthSuccess, UserID: userID, RoomID: roomID, RoomInfo: info}
}

func (m *AuthSuccess) ServerKind() string { return m.Type }

type AuthError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewAuthError(reason string) *AuthError {
	return &AuthError{Type: KindAuthError, Error: reason}
}

func (m *AuthError) ServerKind() string { return m.Type }

type RoomState struct {
	Type   string           `json:"type"`
	RoomID string           `json:"room_id"`
	Users  []types.UserInfo `json:"users"`
}

func NewRoomState(roomID string, users []types.UserInfo) *RoomState {
	return &RoomState{Type: KindRoomState, RoomID: roomID, Users: users}
}

func (m *RoomState) ServerKind() string { return m.Type }

type UserJoined struct {
	Type        string            `json:"type"`
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	Avatar      *types.AvatarInfo `json:"avatar,omitempty"`
	Nationality *string           `json:"nationality,omitempty"`
}

func NewUserJoined(userID, username string, nationality *string) *UserJoined {
	return &UserJoined{
		Type:        KindUserJoined,
		UserID:      userID,
		Username:    username,
		Avatar:      types.DefaultAvatar(),
		Nationality: nationality,
	}
}

func (m *UserJoined) ServerKind() string { return m.Type }

type UserLeft struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Nationality *string `json:"nationality,omitempty"`
}

func NewUserLeft(userID, username string, nationality *string) *UserLeft {
	return &UserLeft{Type: KindUserLeft, UserID: userID, Username: username, Nationality: nationality}
}

func (m *UserLeft) ServerKind() string { return m.Type }

// ChatBroadcast echoes a chat message with the resolved identity and the
// server timestamp.
type ChatBroadcast struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Message     string  `json:"message"`
	Nationality *string `json:"nationality,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewChatBroadcast(userID, username, message string, nationality *string, ts int64) *ChatBroadcast {
	return &ChatBroadcast{
		Type:        KindChatMessage,
		UserID:      userID,
		Username:    username,
		Message:     message,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *ChatBroadcast) ServerKind() string { return m.Type }

type UserPositionUpdate struct {
	Type        string         `json:"type"`
	UserID      string         `json:"user_id"`
	Position    types.Position `json:"position"`
	Nationality *string        `json:"nationality,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

func NewUserPositionUpdate(userID string, pos types.Position, nationality *string, ts int64) *UserPositionUpdate {
	return &UserPositionUpdate{
		Type:        KindUserPositionUpdate,
		UserID:      userID,
		Position:    pos,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *UserPositionUpdate) ServerKind() string { return m.Type }

type EmotionBroadcast struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Emotion     string  `json:"emotion"`
	Nationality *string `json:"nationality,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewEmotionBroadcast(userID, username, emotion string, nationality *string, ts int64) *EmotionBroadcast {
	return &EmotionBroadcast{
		Type:        KindEmotion,
		UserID:      userID,
		Username:    username,
		Emotion:     emotion,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *EmotionBroadcast) ServerKind() string { return m.Type }

type InteractionBroadcast struct {
	Type            string          `json:"type"`
	UserID          string          `json:"user_id"`
	Username        string          `json:"username"`
	TargetUserID    *string         `json:"target_user_id,omitempty"`
	InteractionType string          `json:"interaction_type"`
	Data            json.RawMessage `json:"data,omitempty"`
	Nationality     *string         `json:"nationality,omitempty"`
	Timestamp       int64           `json:"timestamp"`
}

func NewInteractionBroadcast(userID, username string, target *string, interactionType string, data json.RawMessage, nationality *string, ts int64) *InteractionBroadcast {
	return &InteractionBroadcast{
		Type:            KindInteraction,
		UserID:          userID,
		Username:        username,
		TargetUserID:    target,
		InteractionType: interactionType,
		Data:            data,
		Nationality:     nationality,
		Timestamp:       ts,
	}
}

func (m *InteractionBroadcast) ServerKind() string { return m.Type }

type TypingBroadcast struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

func NewTypingBroadcast(userID, username string, isTyping bool) *TypingBroadcast {
	return &TypingBroadcast{Type: KindTyping, UserID: userID, Username: username, IsTyping: isTyping}
}

func (m *TypingBroadcast) ServerKind() string { return m.Type }

// Pong echoes the client timestamp untouched.
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func NewPong(ts int64) *Pong {
	return &Pong{Type: KindPong, Timestamp: ts}
}

func (m *Pong) ServerKind() string { return m.Type }

type System struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSystem(message string) *System {
	return &System{Type: KindSystem, Message: message}
}

func (m *System) ServerKind() string { return m.Type }

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewError(reason string) *Error {
	return &Error{Type: KindError, Error: reason}
}

func (m *Error) ServerKind() string { return m.Type }

type SceneChangeBroadcast struct {
	Type        string          `json:"type"`
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	ScenePreset string          `json:"scene_preset"`
	SceneName   *string         `json:"scene_name,omitempty"`
	ChangeData  json.RawMessage `json:"change_data,omitempty"`
	Nationality *string         `json:"nationality,omitempty"`
	Timestamp   int64           `json:"timestamp"`
}

func NewSceneChangeBroadcast(userID, username, scenePreset string, sceneName *string, changeData json.RawMessage, nationality *string, ts int64) *SceneChangeBroadcast {
	return &SceneChangeBroadcast{
		Type:        KindSceneChange,
		UserID:      userID,
		Username:    username,
		ScenePreset: scenePreset,
		SceneName:   sceneName,
		ChangeData:  changeData,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *SceneChangeBroadcast) ServerKind() string { return m.Type }

type WeatherChangeBroadcast struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	WeatherType string  `json:"weather_type"`
	Intensity   float64 `json:"intensity"`
	Nationality *string `json:"nationality,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewWeatherChangeBroadcast(userID, username, weatherType string, intensity float64, nationality *string, ts int64) *WeatherChangeBroadcast {
	return &WeatherChangeBroadcast{
		Type:        KindWeatherChange,
		UserID:      userID,
		Username:    username,
		WeatherType: weatherType,
		Intensity:   intensity,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *WeatherChangeBroadcast) ServerKind() string { return m.Type }

type TimeChangeBroadcast struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	TimeOfDay   string  `json:"time_of_day"`
	Hour        *int    `json:"hour,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewTimeChangeBroadcast(userID, username, timeOfDay string, hour *int, nationality *string, ts int64) *TimeChangeBroadcast {
	return &TimeChangeBroadcast{
		Type:        KindTimeChange,
		UserID:      userID,
		Username:    username,
		TimeOfDay:   timeOfDay,
		Hour:        hour,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *TimeChangeBroadcast) ServerKind() string { return m.Type }

type ShareStartedBroadcast struct {
	Type        string          `json:"type"`
	UserID      string          `json:"user_id"`
	RoomID      string          `json:"room_id"`
	Username    string          `json:"username"`
	Nationality *string         `json:"nationality,omitempty"`
	ShareData   types.ShareData `json:"share_data"`
	Timestamp   int64           `json:"timestamp"`
}

func NewShareStartedBroadcast(userID, roomID, username string, nationality *string, data types.ShareData, ts int64) *ShareStartedBroadcast {
	return &ShareStartedBroadcast{
		Type:        KindShareStarted,
		UserID:      userID,
		RoomID:      roomID,
		Username:    username,
		Nationality: nationality,
		ShareData:   data,
		Timestamp:   ts,
	}
}

func (m *ShareStartedBroadcast) ServerKind() string { return m.Type }

type ShareStoppedBroadcast struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Username    string  `json:"username"`
	Nationality *string `json:"nationality,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func NewShareStoppedBroadcast(userID, roomID, username string, nationality *string, ts int64) *ShareStoppedBroadcast {
	return &ShareStoppedBroadcast{
		Type:        KindShareStopped,
		UserID:      userID,
		RoomID:      roomID,
		Username:    username,
		Nationality: nationality,
		Timestamp:   ts,
	}
}

func (m *ShareStoppedBroadcast) ServerKind() string { return m.Type }

// ShareRelay carries one point-to-point signaling payload. The same shape
// serves offers, answers, and candidates; the kind picks the tag.
type ShareRelay struct {
	Type         string          `json:"type"`
	UserID       string          `json:"user_id"`
	RoomID       string          `json:"room_id"`
	TargetUserID string          `json:"target_user_id"`
	Data         json.RawMessage `json:"data"`
	Timestamp    int64           `json:"timestamp"`
}

func NewShareRelay(kind, userID, roomID, targetUserID string, data json.RawMessage, ts int64) *ShareRelay {
	return &ShareRelay{
		Type:         kind,
		UserID:       userID,
		RoomID:       roomID,
		TargetUserID: targetUserID,
		Data:         data,
		Timestamp:    ts,
	}
}

func (m *ShareRelay) ServerKind() string { return m.Type }

type ShareWebRTCReadyBroadcast struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareData types.ShareData `json:"share_data"`
	Timestamp int64           `json:"timestamp"`
}

func NewShareWebRTCReadyBroadcast(userID, roomID, username string, data types.ShareData, ts int64) *ShareWebRTCReadyBroadcast {
	return &ShareWebRTCReadyBroadcast{
		Type:      KindShareWebRTCReady,
		UserID:    userID,
		RoomID:    roomID,
		Username:  username,
		ShareData: data,
		Timestamp: ts,
	}
}

func (m *ShareWebRTCReadyBroadcast) ServerKind() string { return m.Type }

type ShareBroadcastOfferBroadcast struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareType *string         `json:"share_type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewShareBroadcastOfferBroadcast(userID, roomID, username string, shareType *string, data json.RawMessage, ts int64) *ShareBroadcastOfferBroadcast {
	return &ShareBroadcastOfferBroadcast{
		Type:      KindShareBroadcastOffer,
		UserID:    userID,
		RoomID:    roomID,
		Username:  username,
		ShareType: shareType,
		Data:      data,
		Timestamp: ts,
	}
}

func (m *ShareBroadcastOfferBroadcast) ServerKind() string { return m.Type }

type ShareReadyBroadcast struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareData json.RawMessage `json:"share_data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewShareReadyBroadcast(userID, roomID, username string, data json.RawMessage, ts int64) *ShareReadyBroadcast {
	return &ShareReadyBroadcast{
		Type:      KindShareReady,
		UserID:    userID,
		RoomID:    roomID,
		Username:  username,
		ShareData: data,
		Timestamp: ts,
	}
}

func (m *ShareReadyBroadcast) ServerKind() string { return m.Type }

// OngoingScreenShare is sent directly to a late joiner so they can start the
// viewer handshake.
type OngoingScreenShare struct {
	Type        string          `json:"type"`
	RoomID      string          `json:"room_id"`
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Nationality *string         `json:"nationality,omitempty"`
	ShareData   types.ShareData `json:"share_data"`
	StartedAt   int64           `json:"started_at"`
	ViewerCount int             `json:"viewer_count"`
	Timestamp   int64           `json:"timestamp"`
}

func NewOngoingScreenShare(roomID string, info types.OngoingScreenShareInfo, ts int64) *OngoingScreenShare {
	return &OngoingScreenShare{
		Type:        KindOngoingScreenShare,
		RoomID:      roomID,
		UserID:      info.UserId,
		Username:    info.Username,
		Nationality: info.Nationality,
		ShareData:   info.ShareData,
		StartedAt:   info.StartedAt,
		ViewerCount: info.ViewerCount,
		Timestamp:   ts,
	}
}

func (m *OngoingScreenShare) ServerKind() string { return m.Type }

type NewViewerJoined struct {
	Type           string `json:"type"`
	ViewerUserID   string `json:"viewer_user_id"`
	ViewerUsername string `json:"viewer_username"`
	RoomID         string `json:"room_id"`
	SharerUserID   string `json:"sharer_user_id"`
	Timestamp      int64  `json:"timestamp"`
}

func NewNewViewerJoined(viewerUserID, viewerUsername, roomID, sharerUserID string, ts int64) *NewViewerJoined {
	return &NewViewerJoined{
		Type:           KindNewViewerJoined,
		ViewerUserID:   viewerUserID,
		ViewerUsername: viewerUsername,
		RoomID:         roomID,
		SharerUserID:   sharerUserID,
		Timestamp:      ts,
	}
}

func (m *NewViewerJoined) ServerKind() string { return m.Type }

type ViewerRequestsOffer struct {
	Type           string `json:"type"`
	ViewerUserID   string `json:"viewer_user_id"`
	ViewerUsername string `json:"viewer_username"`
	RoomID         string `json:"room_id"`
	Timestamp      int64  `json:"timestamp"`
}

func NewViewerRequestsOffer(viewerUserID, viewerUsername, roomID string, ts int64) *ViewerRequestsOffer {
	return &ViewerRequestsOffer{
		Type:           KindViewerRequestsOffer,
		ViewerUserID:   viewerUserID,
		ViewerUsername: viewerUsername,
		RoomID:         roomID,
		Timestamp:      ts,
	}
}

func (m *ViewerRequestsOffer) ServerKind() string { return m.Type }
