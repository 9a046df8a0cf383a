package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// ClientMessage is implemented by every inbound message kind.
type ClientMessage interface {
	ClientKind() string
	Validate() error
}

// ErrUnknownKind marks frames whose type tag is not registered.
var ErrUnknownKind = errors.New("unknown message type")

// clientRegistry maps a type tag to a factory for its inbound struct.
var clientRegistry = map[string]func() ClientMessage{
	KindAuth:                func() ClientMessage { return &Auth{} },
	KindChatMessage:         func() ClientMessage { return &ChatMessage{} },
	KindPositionUpdate:      func() ClientMessage { return &PositionUpdate{} },
	KindEmotion:             func() ClientMessage { return &Emotion{} },
	KindInteraction:         func() ClientMessage { return &Interaction{} },
	KindTyping:              func() ClientMessage { return &Typing{} },
	KindGetRoomState:        func() ClientMessage { return &GetRoomState{} },
	KindPing:                func() ClientMessage { return &Ping{} },
	KindSceneChange:         func() ClientMessage { return &SceneChange{} },
	KindWeatherChange:       func() ClientMessage { return &WeatherChange{} },
	KindTimeChange:          func() ClientMessage { return &TimeChange{} },
	KindShareStarted:        func() ClientMessage { return &ShareStart{} },
	KindShareStopped:        func() ClientMessage { return &ShareStop{} },
	KindShareOffer:          func() ClientMessage { return &ShareOffer{} },
	KindShareAnswer:         func() ClientMessage { return &ShareAnswer{} },
	KindShareCandidate:      func() ClientMessage { return &ShareCandidate{} },
	KindShareWebRTCReady:    func() ClientMessage { return &ShareWebRTCReady{} },
	KindShareBroadcastOffer: func() ClientMessage { return &ShareBroadcastOffer{} },
	KindShareReady:          func() ClientMessage { return &ShareReady{} },
	KindShareOfferRequest:   func() ClientMessage { return &ShareOfferRequest{} },
	KindShareJoinRequest:    func() ClientMessage { return &ShareJoinRequest{} },
}

// Decode parses one inbound frame. It peeks the type tag, unmarshals the full
// frame into that kind's struct, and validates required fields. Unknown
// fields are ignored. Errors map to a single "error" reply; the connection
// stays open.
func Decode(frame []byte) (ClientMessage, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	factory, ok := clientRegistry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}

	msg := factory()
	if err := json.Unmarshal(frame, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", env.Type, err)
	}
	return msg, nil
}

// Auth binds a connection to a user identity and a room. Empty user_id or
// username downgrades the caller to a synthesized guest.
type Auth struct {
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Username    string  `json:"username"`
	Nationality *string `json:"nationality"`
	Timestamp   int64   `json:"timestamp"`
}

func (*Auth) ClientKind() string { return KindAuth }

func (m *Auth) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

type ChatMessage struct {
	Message     string  `json:"message"`
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Nationality *string `json:"nationality"`
	Timestamp   int64   `json:"timestamp"`
}

func (*ChatMessage) ClientKind() string { return KindChatMessage }

func (m *ChatMessage) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

type PositionUpdate struct {
	UserID      string          `json:"user_id"`
	RoomID      string          `json:"room_id"`
	Position    *types.Position `json:"position"`
	Nationality *string         `json:"nationality"`
	Timestamp   int64           `json:"timestamp"`
}

func (*PositionUpdate) ClientKind() string { return KindPositionUpdate }

func (m *PositionUpdate) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.Position == nil {
		return errors.New("position is required")
	}
	return nil
}

type Emotion struct {
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Emotion     string  `json:"emotion"`
	Nationality *string `json:"nationality"`
	Timestamp   int64   `json:"timestamp"`
}

func (*Emotion) ClientKind() string { return KindEmotion }

func (m *Emotion) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.Emotion == "" {
		return errors.New("emotion is required")
	}
	return nil
}

type Interaction struct {
	UserID          string          `json:"user_id"`
	RoomID          string          `json:"room_id"`
	TargetUserID    *string         `json:"target_user_id"`
	InteractionType string          `json:"interaction_type"`
	Data            json.RawMessage `json:"data"`
	Nationality     *string         `json:"nationality"`
	Timestamp       int64           `json:"timestamp"`
}

func (*Interaction) ClientKind() string { return KindInteraction }

func (m *Interaction) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.InteractionType == "" {
		return errors.New("interaction_type is required")
	}
	return nil
}

type Typing struct {
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

func (*Typing) ClientKind() string { return KindTyping }

func (m *Typing) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

type GetRoomState struct {
	RoomID string `json:"room_id"`
}

func (*GetRoomState) ClientKind() string { return KindGetRoomState }

func (m *GetRoomState) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

// Ping carries a client timestamp echoed back verbatim in the pong.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

func (*Ping) ClientKind() string { return KindPing }

func (m *Ping) Validate() error { return nil }

type SceneChange struct {
	UserID      string          `json:"user_id"`
	RoomID      string          `json:"room_id"`
	Username    string          `json:"username"`
	ScenePreset string          `json:"scene_preset"`
	SceneName   *string         `json:"scene_name"`
	ChangeData  json.RawMessage `json:"change_data"`
	Nationality *string         `json:"nationality"`
	Timestamp   int64           `json:"timestamp"`
}

func (*SceneChange) ClientKind() string { return KindSceneChange }

func (m *SceneChange) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.ScenePreset == "" {
		return errors.New("scene_preset is required")
	}
	return nil
}

type WeatherChange struct {
	UserID      string   `json:"user_id"`
	RoomID      string   `json:"room_id"`
	Username    string   `json:"username"`
	WeatherType string   `json:"weather_type"`
	Intensity   *float64 `json:"intensity"`
	Nationality *string  `json:"nationality"`
	Timestamp   int64    `json:"timestamp"`
}

func (*WeatherChange) ClientKind() string { return KindWeatherChange }

func (m *WeatherChange) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.WeatherType == "" {
		return errors.New("weather_type is required")
	}
	if m.Intensity != nil && *m.Intensity < 0 {
		return errors.New("intensity must not be negative")
	}
	return nil
}

type TimeChange struct {
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Username    string  `json:"username"`
	TimeOfDay   string  `json:"time_of_day"`
	Hour        *int    `json:"hour"`
	Nationality *string `json:"nationality"`
	Timestamp   int64   `json:"timestamp"`
}

func (*TimeChange) ClientKind() string { return KindTimeChange }

func (m *TimeChange) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.TimeOfDay == "" {
		return errors.New("time_of_day is required")
	}
	if m.Hour != nil && (*m.Hour < 0 || *m.Hour > 23) {
		return errors.New("hour must be between 0 and 23")
	}
	return nil
}

type ShareStart struct {
	UserID      string          `json:"user_id"`
	RoomID      string          `json:"room_id"`
	Username    string          `json:"username"`
	Nationality *string         `json:"nationality"`
	ShareData   types.ShareData `json:"share_data"`
	Timestamp   int64           `json:"timestamp"`
}

func (*ShareStart) ClientKind() string { return KindShareStarted }

func (m *ShareStart) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.Username == "" {
		return errors.New("username is required")
	}
	if m.ShareData.ProjectionMode == "" || m.ShareData.Quality == "" {
		return errors.New("share_data requires projection_mode and quality")
	}
	return nil
}

type ShareStop struct {
	UserID      string  `json:"user_id"`
	RoomID      string  `json:"room_id"`
	Username    string  `json:"username"`
	Nationality *string `json:"nationality"`
	Timestamp   int64   `json:"timestamp"`
}

func (*ShareStop) ClientKind() string { return KindShareStopped }

func (m *ShareStop) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// relayFields are shared by the three point-to-point signaling kinds. The
// payload is opaque to the server.
type relayFields struct {
	UserID       string          `json:"user_id"`
	RoomID       string          `json:"room_id"`
	TargetUserID string          `json:"target_user_id"`
	Data         json.RawMessage `json:"data"`
	Timestamp    int64           `json:"timestamp"`
}

func (m *relayFields) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.TargetUserID == "" {
		return errors.New("target_user_id is required")
	}
	if len(m.Data) == 0 {
		return errors.New("data is required")
	}
	return nil
}

type ShareOffer struct{ relayFields }

func (*ShareOffer) ClientKind() string { return KindShareOffer }

type ShareAnswer struct{ relayFields }

func (*ShareAnswer) ClientKind() string { return KindShareAnswer }

type ShareCandidate struct{ relayFields }

func (*ShareCandidate) ClientKind() string { return KindShareCandidate }

type ShareWebRTCReady struct {
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareData types.ShareData `json:"share_data"`
	Timestamp int64           `json:"timestamp"`
}

func (*ShareWebRTCReady) ClientKind() string { return KindShareWebRTCReady }

func (m *ShareWebRTCReady) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// ShareBroadcastOffer announces an offer round to the whole room; the client
// payload shape is passed through untouched.
type ShareBroadcastOffer struct {
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareType *string         `json:"share_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func (*ShareBroadcastOffer) ClientKind() string { return KindShareBroadcastOffer }

func (m *ShareBroadcastOffer) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

// ShareReady signals that the sharer's media is flowing; share_data here is
// free-form client diagnostics, not the canonical share parameters.
type ShareReady struct {
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Username  string          `json:"username"`
	ShareData json.RawMessage `json:"share_data"`
	Timestamp int64           `json:"timestamp"`
}

func (*ShareReady) ClientKind() string { return KindShareReady }

func (m *ShareReady) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	return nil
}

type ShareOfferRequest struct {
	UserID       string `json:"user_id"`
	RoomID       string `json:"room_id"`
	TargetUserID string `json:"target_user_id"`
	Timestamp    int64  `json:"timestamp"`
}

func (*ShareOfferRequest) ClientKind() string { return KindShareOfferRequest }

func (m *ShareOfferRequest) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.TargetUserID == "" {
		return errors.New("target_user_id is required")
	}
	return nil
}

type ShareJoinRequest struct {
	UserID       string `json:"user_id"`
	RoomID       string `json:"room_id"`
	TargetUserID string `json:"target_user_id"`
	Timestamp    int64  `json:"timestamp"`
}

func (*ShareJoinRequest) ClientKind() string { return KindShareJoinRequest }

func (m *ShareJoinRequest) Validate() error {
	if m.RoomID == "" {
		return errors.New("room_id is required")
	}
	if m.TargetUserID == "" {
		return errors.New("target_user_id is required")
	}
	return nil
}
