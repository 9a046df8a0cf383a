// Package session wires the transport, room, history, rate-limit, and
// screen-share layers into the message dispatcher that runs the realtime
// protocol.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/config"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/history"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/protocol"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/ratelimit"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/room"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/screenshare"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/transport"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/types"
)

// Reply strings fixed by the wire contract.
const (
	errInvalidFormat  = "Invalid message format"
	errUnknownType    = "Unknown message type"
	errRateLimited    = "Rate limit exceeded. Please slow down."
	errNotAuthed      = "Authentication required"
	errRoomMismatch   = "Room mismatch"
	errRoomFull       = "Room is full"
	errRoomLimit      = "Room limit reached"
	msgShuttingDown   = "Server shutting down"
	historyReplaySize = 20
)

// Sweep cadences for the background maintenance loops.
const (
	rateLimitSweepInterval = 5 * time.Minute
	historySweepInterval   = time.Hour
	shareExpirySweep       = time.Minute
)

// Coordinator owns all per-process realtime state and dispatches every
// inbound frame. It implements transport.FrameHandler.
type Coordinator struct {
	cfg     *config.Realtime
	hub     *transport.Hub
	rooms   *room.Manager
	history *history.Store
	limiter *ratelimit.MessageLimiter
	shares  *screenshare.Manager
}

// NewCoordinator assembles the dispatcher from the server configuration.
func NewCoordinator(cfg *config.Realtime) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		hub:   transport.NewHub(cfg.MaxConnections),
		rooms: room.NewManager(cfg.MaxRooms, cfg.MaxUsersPerRoom),
		history: history.NewStore(history.Config{
			MaxMessagesPerRoom: cfg.MaxMessagesPerRoom,
			MaxRoomsInCache:    cfg.MaxRoomsInCache,
			MessageTTL:         cfg.MessageTTL(),
		}),
		limiter: ratelimit.NewMessageLimiter(ratelimit.Config{
			MessagesPerWindow: cfg.RateLimitMessagesPerSecond,
			WindowDuration:    time.Second,
			BurstLimit:        cfg.RateLimitBurst,
		}),
		shares: screenshare.NewManager(screenshare.Config{
			SessionTimeout: cfg.ScreenShareTimeout(),
			MaxViewers:     cfg.MaxViewersPerShare,
		}),
	}
}

// Hub exposes the connection hub for the HTTP layer.
func (co *Coordinator) Hub() *transport.Hub { return co.hub }

// HandleFrame decodes and dispatches one inbound frame. Protocol errors get
// an error reply and the connection stays open.
func (co *Coordinator) HandleFrame(client types.ClientInterface, frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownKind) {
			co.reply(client, protocol.NewError(errUnknownType))
		} else {
			co.reply(client, protocol.NewError(errInvalidFormat))
		}
		logging.Debug(context.Background(), "rejected frame",
			zap.String("connection_id", string(client.GetID())), zap.Error(err))
		return
	}

	kind := msg.ClientKind()
	metrics.MessagesReceived.WithLabelValues(kind).Inc()
	start := time.Now()
	defer func() {
		metrics.MessageProcessingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if protocol.RateLimitedKinds.Has(kind) && !co.limiter.Allow(string(client.GetID())) {
		metrics.RateLimited.Inc()
		co.reply(client, protocol.NewError(errRateLimited))
		return
	}

	switch m := msg.(type) {
	case *protocol.Auth:
		co.handleAuth(client, m)
	case *protocol.Ping:
		co.reply(client, protocol.NewPong(m.Timestamp))
	case *protocol.ChatMessage:
		co.handleChat(client, m)
	case *protocol.PositionUpdate:
		co.handlePosition(client, m)
	case *protocol.Emotion:
		co.handleEmotion(client, m)
	case *protocol.Interaction:
		co.handleInteraction(client, m)
	case *protocol.Typing:
		co.handleTyping(client, m)
	case *protocol.GetRoomState:
		co.handleRoomState(client, m)
	case *protocol.SceneChange:
		co.handleSceneChange(client, m)
	case *protocol.WeatherChange:
		co.handleWeatherChange(client, m)
	case *protocol.TimeChange:
		co.handleTimeChange(client, m)
	case *protocol.ShareStart:
		co.handleShareStart(client, m)
	case *protocol.ShareStop:
		co.handleShareStop(client, m)
	case *protocol.ShareOffer:
		co.handleShareRelay(client, protocol.KindShareOffer, m.RoomID, m.UserID, m.TargetUserID, m.Data)
	case *protocol.ShareAnswer:
		co.handleShareRelay(client, protocol.KindShareAnswer, m.RoomID, m.UserID, m.TargetUserID, m.Data)
	case *protocol.ShareCandidate:
		co.handleShareRelay(client, protocol.KindShareCandidate, m.RoomID, m.UserID, m.TargetUserID, m.Data)
	case *protocol.ShareWebRTCReady:
		co.handleShareWebRTCReady(client, m)
	case *protocol.ShareBroadcastOffer:
		co.handleShareBroadcastOffer(client, m)
	case *protocol.ShareReady:
		co.handleShareReady(client, m)
	case *protocol.ShareOfferRequest:
		co.handleShareOfferRequest(client, m)
	case *protocol.ShareJoinRequest:
		co.handleShareJoinRequest(client, m)
	}
}

// HandleDisconnect runs cleanup when a socket's read loop exits: stop any
// share the user owned, announce user_left, and drop the connection.
func (co *Coordinator) HandleDisconnect(client types.ClientInterface) {
	connID := client.GetID()
	userID := string(client.GetUserID())
	roomID := string(client.GetRoomID())

	defer func() {
		co.hub.Unregister(connID)
		metrics.DecConnection()
	}()

	if roomID == "" {
		return
	}

	r, ok := co.rooms.Get(roomID)
	if !ok {
		return
	}

	// Resolve identity before membership changes; afterwards the lookup
	// would fall back to the placeholder.
	username := r.Username(userID)
	var nationality *string
	if u, found := r.GetUser(userID); found {
		nationality = u.Nationality
	}

	if stoppedRoom, stopped := co.shares.UserDisconnected(userID); stopped {
		stopMsg := protocol.NewShareStoppedBroadcast(userID, stoppedRoom, username, nationality, protocol.NowMillis())
		co.broadcast(stoppedRoom, stopMsg, "")
	}

	r.RemoveUser(userID)
	metrics.RoomUsers.WithLabelValues(roomID).Set(float64(r.UserCount()))

	left := protocol.NewUserLeft(userID, username, nationality)
	co.storeAndBroadcast(roomID, left, "")

	logging.Info(context.Background(), "user disconnected",
		zap.String("connection_id", string(connID)),
		zap.String("user_id", userID),
		zap.String("room_id", roomID))
}

// handleAuth binds a connection to a user and room. A full room replies
// auth_error and leaves the connection open and unbound.
func (co *Coordinator) handleAuth(client types.ClientInterface, m *protocol.Auth) {
	userID := m.UserID
	username := m.Username
	if userID == "" || username == "" {
		userID = types.GuestIdPrefix + firstUUIDSegment(string(client.GetID()))
		username = types.GuestUsername
	}

	r, err := co.rooms.GetOrCreate(m.RoomID)
	if err != nil {
		metrics.AuthFailures.Inc()
		co.reply(client, protocol.NewAuthError(errRoomLimit))
		return
	}

	if !r.AddUser(userID, username, m.Nationality) {
		metrics.AuthFailures.Inc()
		co.reply(client, protocol.NewAuthError(errRoomFull))
		return
	}
	metrics.RoomUsers.WithLabelValues(m.RoomID).Set(float64(r.UserCount()))

	if evicted := co.hub.Bind(client.GetID(), types.UserIdType(userID), types.RoomIdType(m.RoomID)); evicted != nil {
		evicted.Disconnect()
	}

	info := r.Snapshot()
	if share, ok := co.shares.OngoingInfo(m.RoomID); ok {
		info.OngoingScreenShare = &share
	}
	co.reply(client, protocol.NewAuthSuccess(userID, m.RoomID, info))

	for _, stored := range co.history.Recent(m.RoomID, historyReplaySize) {
		co.reply(client, stored.Message)
	}

	joined := protocol.NewUserJoined(userID, username, m.Nationality)
	co.storeAndBroadcast(m.RoomID, joined, types.UserIdType(userID))

	co.notifyLateJoiner(client, r, m.RoomID, userID, username)

	logging.Info(context.Background(), "user authenticated",
		zap.String("connection_id", string(client.GetID())),
		zap.String("user_id", userID),
		zap.String("room_id", m.RoomID),
		zap.Bool("guest", strings.HasPrefix(userID, types.GuestIdPrefix)))
}

// notifyLateJoiner runs the ongoing-share handshake for a user that joins a
// room with a live share: the share snapshot to the joiner, a viewer
// notification to the sharer, and viewer registration.
func (co *Coordinator) notifyLateJoiner(client types.ClientInterface, r *room.Room, roomID, userID, username string) {
	info, ok := co.shares.OngoingInfo(roomID)
	if !ok || info.UserId == userID {
		return
	}

	co.reply(client, protocol.NewOngoingScreenShare(roomID, info, protocol.NowMillis()))

	viewerMsg := protocol.NewNewViewerJoined(userID, username, roomID, info.UserId, protocol.NowMillis())
	co.sendToUser(roomID, info.UserId, viewerMsg)

	if err := co.shares.AddViewer(roomID, userID); err != nil {
		logging.Warn(context.Background(), "late joiner not added as viewer",
			zap.String("room_id", roomID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// Run drives the background sweepers until the context ends.
func (co *Coordinator) Run(ctx context.Context) {
	rateTicker := time.NewTicker(rateLimitSweepInterval)
	historyTicker := time.NewTicker(historySweepInterval)
	shareTicker := time.NewTicker(shareExpirySweep)
	defer rateTicker.Stop()
	defer historyTicker.Stop()
	defer shareTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rateTicker.C:
			if n := co.limiter.Sweep(); n > 0 {
				logging.Debug(ctx, "rate limiter sweep", zap.Int("evicted", n))
			}
		case <-historyTicker.C:
			co.history.Sweep()
		case <-shareTicker.C:
			co.expireShares(time.Now())
		}
	}
}

// expireShares removes timed-out shares and tells each room the share is
// over, so viewers do not wait for a media timeout.
func (co *Coordinator) expireShares(now time.Time) {
	for _, share := range co.shares.ExpireSessions(now) {
		msg := protocol.NewShareStoppedBroadcast(share.SharerID, share.RoomID, share.SharerName, share.Nationality, protocol.NowMillis())
		co.broadcast(share.RoomID, msg, "")
		logging.Info(context.Background(), "screen share expired",
			zap.String("room_id", share.RoomID),
			zap.String("user_id", share.SharerID))
	}
}

// Shutdown notifies every room and closes all connections.
func (co *Coordinator) Shutdown(ctx context.Context) {
	system := protocol.NewSystem(msgShuttingDown)
	for _, r := range co.rooms.Rooms() {
		co.broadcast(r.ID(), system, "")
	}
	co.hub.CloseAll()
	logging.Info(ctx, "coordinator shut down")
}

// reply sends one message to a single connection.
func (co *Coordinator) reply(client types.ClientInterface, msg protocol.ServerMessage) {
	data, err := protocol.Encode(msg)
	if err != nil {
		logging.Error(context.Background(), "encode failed",
			zap.String("kind", msg.ServerKind()), zap.Error(err))
		return
	}
	client.SendRaw(data)
}

// sendToUser delivers a message to the first connection bound to the user.
func (co *Coordinator) sendToUser(roomID, userID string, msg protocol.ServerMessage) {
	data, err := protocol.Encode(msg)
	if err != nil {
		logging.Error(context.Background(), "encode failed",
			zap.String("kind", msg.ServerKind()), zap.Error(err))
		return
	}
	co.hub.SendToUser(types.RoomIdType(roomID), types.UserIdType(userID), data)
}

// broadcast fans a message out to the room, excluding excludeUserID when
// non-empty.
func (co *Coordinator) broadcast(roomID string, msg protocol.ServerMessage, excludeUserID types.UserIdType) {
	data, err := protocol.Encode(msg)
	if err != nil {
		logging.Error(context.Background(), "encode failed",
			zap.String("kind", msg.ServerKind()), zap.Error(err))
		return
	}
	co.hub.BroadcastToRoom(types.RoomIdType(roomID), data, excludeUserID)
}

// storeAndBroadcast appends to the room history (when the kind is retained)
// and fans out.
func (co *Coordinator) storeAndBroadcast(roomID string, msg protocol.ServerMessage, excludeUserID types.UserIdType) {
	co.history.Add(roomID, msg)
	co.broadcast(roomID, msg, excludeUserID)
}

// effectiveIdentity resolves the sender per the protocol: the message's
// user_id when present, otherwise the connection binding; the username comes
// from room membership with the "User" fallback.
func (co *Coordinator) effectiveIdentity(client types.ClientInterface, msgUserID, roomID string) (string, string) {
	userID := msgUserID
	if userID == "" {
		userID = string(client.GetUserID())
	}

	username := types.DefaultUsername
	if r, ok := co.rooms.Get(roomID); ok {
		username = r.Username(userID)
	}
	return userID, username
}

// authorized checks that the connection is bound to the message's room.
func (co *Coordinator) authorized(client types.ClientInterface, roomID string) bool {
	bound := string(client.GetRoomID())
	return bound != "" && bound == roomID
}

// firstUUIDSegment returns the part of a UUID before the first dash.
func firstUUIDSegment(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}
