package session

import (
	"github.com/euphorie/Euphorie/backend/go/internal/v1/protocol"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// Chat and presence handlers. Unauthorized messages on these paths are
// dropped silently; only signaling mismatches get an error reply.

func (co *Coordinator) handleChat(client types.ClientInterface, m *protocol.ChatMessage) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.effectiveIdentity(client, m.UserID, m.RoomID)
	msg := protocol.NewChatBroadcast(userID, username, m.Message, m.Nationality, protocol.NowMillis())
	co.storeAndBroadcast(m.RoomID, msg, "")
}

func (co *Coordinator) handlePosition(client types.ClientInterface, m *protocol.PositionUpdate) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, _ := co.effectiveIdentity(client, m.UserID, m.RoomID)
	r, ok := co.rooms.Get(m.RoomID)
	if !ok || !r.UpdatePosition(userID, *m.Position) {
		// Unknown users do not generate movement broadcasts.
		return
	}

	msg := protocol.NewUserPositionUpdate(userID, *m.Position, m.Nationality, protocol.NowMillis())
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleEmotion(client types.ClientInterface, m *protocol.Emotion) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.effectiveIdentity(client, m.UserID, m.RoomID)
	msg := protocol.NewEmotionBroadcast(userID, username, m.Emotion, m.Nationality, protocol.NowMillis())
	co.history.Add(m.RoomID, msg)
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleInteraction(client types.ClientInterface, m *protocol.Interaction) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.effectiveIdentity(client, m.UserID, m.RoomID)
	msg := protocol.NewInteractionBroadcast(userID, username, m.TargetUserID, m.InteractionType, m.Data, m.Nationality, protocol.NowMillis())
	co.history.Add(m.RoomID, msg)
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleTyping(client types.ClientInterface, m *protocol.Typing) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.effectiveIdentity(client, m.UserID, m.RoomID)
	msg := protocol.NewTypingBroadcast(userID, username, m.IsTyping)
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleRoomState(client types.ClientInterface, m *protocol.GetRoomState) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	r, ok := co.rooms.Get(m.RoomID)
	if !ok {
		return
	}
	co.reply(client, protocol.NewRoomState(m.RoomID, r.Snapshot().ActiveUsers))
}

// Environment handlers update room state first, then fan out including the
// sender so every client converges on the same view. Their messages carry
// their own username field, which wins over the room lookup when set.

func (co *Coordinator) envIdentity(client types.ClientInterface, msgUserID, msgUsername, roomID string) (string, string) {
	userID, username := co.effectiveIdentity(client, msgUserID, roomID)
	if msgUsername != "" {
		username = msgUsername
	}
	return userID, username
}

func (co *Coordinator) handleSceneChange(client types.ClientInterface, m *protocol.SceneChange) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.envIdentity(client, m.UserID, m.Username, m.RoomID)
	r, ok := co.rooms.Get(m.RoomID)
	if !ok || !r.UpdateScene(m.ScenePreset) {
		return
	}

	msg := protocol.NewSceneChangeBroadcast(userID, username, m.ScenePreset, m.SceneName, m.ChangeData, m.Nationality, protocol.NowMillis())
	co.storeAndBroadcast(m.RoomID, msg, "")
}

func (co *Coordinator) handleWeatherChange(client types.ClientInterface, m *protocol.WeatherChange) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.envIdentity(client, m.UserID, m.Username, m.RoomID)
	r, ok := co.rooms.Get(m.RoomID)
	if !ok {
		return
	}

	intensity := 1.0
	if m.Intensity != nil {
		intensity = *m.Intensity
	}
	r.UpdateWeather(m.WeatherType, intensity, userID)

	msg := protocol.NewWeatherChangeBroadcast(userID, username, m.WeatherType, intensity, m.Nationality, protocol.NowMillis())
	co.storeAndBroadcast(m.RoomID, msg, "")
}

func (co *Coordinator) handleTimeChange(client types.ClientInterface, m *protocol.TimeChange) {
	if !co.authorized(client, m.RoomID) {
		return
	}

	userID, username := co.envIdentity(client, m.UserID, m.Username, m.RoomID)
	r, ok := co.rooms.Get(m.RoomID)
	if !ok {
		return
	}
	r.UpdateTime(m.TimeOfDay, m.Hour, userID)

	msg := protocol.NewTimeChangeBroadcast(userID, username, m.TimeOfDay, m.Hour, m.Nationality, protocol.NowMillis())
	co.storeAndBroadcast(m.RoomID, msg, "")
}
