package session

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/protocol"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/screenshare"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// Screen-share handlers. Unlike the chat path, authorization failures here
// reply with an error so a misconfigured client can see why signaling stalls.

func (co *Coordinator) handleShareStart(client types.ClientInterface, m *protocol.ShareStart) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	share, err := co.shares.Start(m.RoomID, m.UserID, m.Username, m.Nationality, m.ShareData)
	if err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}

	msg := protocol.NewShareStartedBroadcast(m.UserID, m.RoomID, m.Username, m.Nationality, share.Data, protocol.NowMillis())
	co.broadcast(m.RoomID, msg, "")
}

func (co *Coordinator) handleShareStop(client types.ClientInterface, m *protocol.ShareStop) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	if err := co.shares.Stop(m.RoomID, m.UserID); err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}

	msg := protocol.NewShareStoppedBroadcast(m.UserID, m.RoomID, m.Username, m.Nationality, protocol.NowMillis())
	co.broadcast(m.RoomID, msg, "")
}

// handleShareRelay forwards one point-to-point signaling payload. Offers are
// restricted to the sharer; answers and candidates flow in both directions.
func (co *Coordinator) handleShareRelay(client types.ClientInterface, kind, roomID, userID, targetUserID string, data json.RawMessage) {
	if !co.signalingAuthorized(client, roomID) {
		return
	}

	var (
		msg protocol.ServerMessage
		err error
	)
	switch kind {
	case protocol.KindShareOffer:
		msg, err = co.shares.RelayOffer(roomID, userID, targetUserID, data)
	case protocol.KindShareAnswer:
		msg, err = co.shares.RelayAnswer(roomID, userID, targetUserID, data)
	default:
		msg, err = co.shares.RelayCandidate(roomID, userID, targetUserID, data)
	}
	if err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}

	co.sendToUser(roomID, targetUserID, msg)
}

func (co *Coordinator) handleShareWebRTCReady(client types.ClientInterface, m *protocol.ShareWebRTCReady) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	msg, err := co.shares.Ready(m.RoomID, m.UserID, m.Username)
	if err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

// handleShareBroadcastOffer announces an offer round to everyone but the
// sharer, using the same sharer-only gate as webrtc_ready.
func (co *Coordinator) handleShareBroadcastOffer(client types.ClientInterface, m *protocol.ShareBroadcastOffer) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	share, ok := co.shares.Active(m.RoomID)
	if !ok {
		co.reply(client, protocol.NewError(screenshare.ErrNoActiveShare.Error()))
		return
	}
	if share.SharerID != m.UserID {
		co.reply(client, protocol.NewError(screenshare.ErrNotSharer.Error()))
		return
	}

	msg := protocol.NewShareBroadcastOfferBroadcast(m.UserID, m.RoomID, m.Username, m.ShareType, m.Data, protocol.NowMillis())
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleShareReady(client types.ClientInterface, m *protocol.ShareReady) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	msg := protocol.NewShareReadyBroadcast(m.UserID, m.RoomID, m.Username, m.ShareData, protocol.NowMillis())
	co.broadcast(m.RoomID, msg, client.GetUserID())
}

func (co *Coordinator) handleShareOfferRequest(client types.ClientInterface, m *protocol.ShareOfferRequest) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	viewerID, viewerName := co.viewerIdentity(client, m.UserID, m.RoomID, "Viewer")
	sharerID, msg, err := co.shares.OfferRequest(m.RoomID, viewerID, viewerName, m.TargetUserID)
	if err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}
	co.sendToUser(m.RoomID, sharerID, msg)
}

func (co *Coordinator) handleShareJoinRequest(client types.ClientInterface, m *protocol.ShareJoinRequest) {
	if !co.signalingAuthorized(client, m.RoomID) {
		return
	}

	viewerID, viewerName := co.viewerIdentity(client, m.UserID, m.RoomID, "New Viewer")
	sharerID, msg, err := co.shares.JoinRequest(m.RoomID, viewerID, viewerName, m.TargetUserID)
	if err != nil {
		co.reply(client, protocol.NewError(err.Error()))
		return
	}
	co.sendToUser(m.RoomID, sharerID, msg)

	if err := co.shares.AddViewer(m.RoomID, viewerID); err != nil {
		logging.Warn(context.Background(), "viewer not added",
			zap.String("room_id", m.RoomID),
			zap.String("user_id", viewerID),
			zap.Error(err))
	}
}

// signalingAuthorized is the error-replying variant of authorized used by
// every screen-share kind.
func (co *Coordinator) signalingAuthorized(client types.ClientInterface, roomID string) bool {
	bound := string(client.GetRoomID())
	if bound == "" {
		co.reply(client, protocol.NewError(errNotAuthed))
		return false
	}
	if bound != roomID {
		co.reply(client, protocol.NewError(errRoomMismatch))
		return false
	}
	return true
}

// viewerIdentity resolves a viewer like effectiveIdentity but with the
// signaling-specific username placeholder.
func (co *Coordinator) viewerIdentity(client types.ClientInterface, msgUserID, roomID, fallback string) (string, string) {
	userID := msgUserID
	if userID == "" {
		userID = string(client.GetUserID())
	}

	username := fallback
	if r, ok := co.rooms.Get(roomID); ok {
		if u, found := r.GetUser(userID); found {
			username = u.Username
		}
	}
	return userID, username
}
