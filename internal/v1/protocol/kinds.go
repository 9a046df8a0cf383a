// Package protocol defines the JSON wire messages exchanged over the
// realtime socket. Frames are flat objects discriminated by a string "type"
// field; timestamps are UNIX milliseconds.
package protocol

import "k8s.io/utils/set"

// Client-to-server message kinds.
const (
	KindAuth                = "auth"
	KindChatMessage         = "chat_message"
	KindPositionUpdate      = "position_update"
	KindEmotion             = "emotion"
	KindInteraction         = "interaction"
	KindTyping              = "typing"
	KindGetRoomState        = "get_room_state"
	KindPing                = "ping"
	KindSceneChange         = "scene_change"
	KindWeatherChange       = "weather_change"
	KindTimeChange          = "time_change"
	KindShareStarted        = "screen_share_started"
	KindShareStopped        = "screen_share_stopped"
	KindShareOffer          = "screen_share_webrtc_offer"
	KindShareAnswer         = "screen_share_webrtc_answer"
	KindShareCandidate      = "screen_share_webrtc_candidate"
	KindShareWebRTCReady    = "screen_share_webrtc_ready"
	KindShareBroadcastOffer = "screen_share_broadcast_offer"
	KindShareReady          = "screen_share_ready"
	KindShareOfferRequest   = "request_screen_share_offer"
	KindShareJoinRequest    = "join_ongoing_screen_share"
)

// Server-to-client message kinds. Broadcast kinds reuse the inbound names.
const (
	KindAuthSuccess         = "auth_success"
	KindAuthError           = "auth_error"
	KindRoomState           = "room_state"
	KindUserJoined          = "user_joined"
	KindUserLeft            = "user_left"
	KindUserPositionUpdate  = "user_position_update"
	KindPong                = "pong"
	KindSystem              = "system"
	KindError               = "error"
	KindOngoingScreenShare  = "ongoing_screen_share"
	KindNewViewerJoined     = "new_viewer_joined"
	KindViewerRequestsOffer = "viewer_requests_offer"
)

// RateLimitedKinds are the inbound kinds subject to the per-connection
// limiter. Auth, ping, room-state reads, and all screen-share signaling are
// exempt so media negotiation stays responsive.
var RateLimitedKinds = set.New(
	KindChatMessage,
	KindPositionUpdate,
	KindEmotion,
	KindInteraction,
	KindTyping,
	KindSceneChange,
	KindWeatherChange,
	KindTimeChange,
)

// HistoryKinds are the outbound kinds retained for room replay. Presence
// churn (position, typing) and signaling are never stored.
var HistoryKinds = set.New(
	KindChatMessage,
	KindEmotion,
	KindInteraction,
	KindUserJoined,
	KindUserLeft,
	KindSceneChange,
	KindWeatherChange,
	KindTimeChange,
)
