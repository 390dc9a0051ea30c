package bridge

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/banterhq/banter/internal/auth"
	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/membership"
	"github.com/banterhq/banter/internal/message"
	"github.com/banterhq/banter/internal/room"
	"github.com/banterhq/banter/internal/user"
)

// Dispatcher routes client event frames to the domain services and turns
// their results into acknowledgments, group updates and pushes. Every
// handler re-verifies the connection's token before touching domain state.
type Dispatcher struct {
	auth       *auth.Service
	users      *user.Service
	rooms      *room.Service
	membership *membership.Manager
	bridge     *Bridge
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher over the given services.
func NewDispatcher(a *auth.Service, u *user.Service, r *room.Service, m *membership.Manager, b *Bridge) *Dispatcher {
	return &Dispatcher{
		auth:       a,
		users:      u,
		rooms:      r,
		membership: m,
		bridge:     b,
		logger:     slog.Default().With("service", "dispatcher"),
	}
}

// HandleFrame processes one client frame to completion and returns its
// acknowledgment. Domain failures are returned through the ack; the
// connection stays open.
func (d *Dispatcher) HandleFrame(ctx context.Context, sess Session, frame Frame) Ack {
	actor, err := d.authenticate(ctx, sess)
	if err != nil {
		return ackError(frame, err)
	}

	var data any
	switch frame.Event {
	case EventCreateRoom:
		data, err = d.createRoom(ctx, actor, frame.Payload)
	case EventEditRoom:
		data, err = d.editRoom(ctx, actor, frame.Payload)
	case EventDeleteRoom:
		data, err = d.deleteRoom(ctx, actor, frame.Payload)
	case EventJoinRoom:
		data, err = d.joinRoom(ctx, actor, frame.Payload)
	case EventLeaveRoom:
		data, err = d.leaveRoom(ctx, actor, frame.Payload)
	case EventKickUser:
		data, err = d.kickUser(ctx, actor, frame.Payload)
	case EventBanUser:
		data, err = d.banUser(ctx, actor, frame.Payload)
	case EventFetchRoom:
		data, err = d.fetchRoom(ctx, frame.Payload)
	case EventFetchAllRooms:
		data, err = d.fetchAllRooms(ctx)
	case EventFetchUserRooms:
		data, err = d.fetchUserRooms(ctx, actor)
	case EventSendMessage:
		data, err = d.sendMessage(ctx, actor, frame.Payload)
	case EventEditMessage:
		data, err = d.editMessage(ctx, actor, frame.Payload)
	default:
		err = domain.NewError(domain.ErrRoomQueryInvalid, "unknown event").WithField("event")
	}

	if err != nil {
		d.logger.Warn("event failed", "event", frame.Event, "user", sess.UserID, "kind", domain.KindOf(err), "error", err)
		return ackError(frame, err)
	}
	return ackData(frame, data)
}

// authenticate verifies the session token and resolves the acting user,
// including the stored-token check. On token expiry the auth service has
// already run the cascade by the time the error surfaces here.
func (d *Dispatcher) authenticate(ctx context.Context, sess Session) (*domain.User, error) {
	claims, err := d.auth.VerifySessionToken(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	return d.users.ResolveSession(ctx, claims.UserID, sess.Token)
}

type createRoomPayload struct {
	NewRoom domain.RoomDraft `json:"newRoom"`
}

func (d *Dispatcher) createRoom(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p createRoomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	created, err := d.rooms.CreateRoom(ctx, actor, p.NewRoom)
	if err != nil {
		return nil, err
	}

	// The creator is a member from the first write; mirror that onto the
	// broadcast group and push fresh state.
	d.bridge.JoinGroup(created.ID, actor.ID)
	d.pushRoomData(ctx, created)
	d.pushRoomsList(ctx)

	return map[string]string{"roomName": created.Name}, nil
}

type editRoomPayload struct {
	Room struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"room"`
}

func (d *Dispatcher) editRoom(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p editRoomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomByID(ctx, p.Room.ID)
	if err != nil {
		return nil, err
	}
	if err := d.users.CheckRoomOwnership(target.Author, actor.ID); err != nil {
		return nil, err
	}
	if err := d.rooms.CheckNameAvailable(ctx, p.Room.Name, target.ID); err != nil {
		return nil, err
	}

	draft := domain.RoomDraft{Name: p.Room.Name, Description: p.Room.Description}
	updated, err := d.rooms.EditRoom(ctx, draft, target)
	if err != nil {
		return nil, err
	}

	d.pushRoomData(ctx, updated)
	d.pushRoomsList(ctx)
	return d.rooms.Snapshot(ctx, updated)
}

type deleteRoomPayload struct {
	RoomID string `json:"roomId"`
}

func (d *Dispatcher) deleteRoom(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p deleteRoomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomByID(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	if err := d.users.CheckRoomOwnership(target.Author, actor.ID); err != nil {
		return nil, err
	}
	if err := d.rooms.DeleteRoom(ctx, target.ID); err != nil {
		return nil, err
	}

	d.bridge.DropGroup(target.ID)
	d.membership.ForgetRoom(target.ID)
	d.pushRoomsList(ctx)
	return map[string]string{"roomId": target.ID}, nil
}

type roomNamePayload struct {
	RoomName string `json:"roomName"`
}

func (d *Dispatcher) joinRoom(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p roomNamePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	joined, err := d.membership.JoinRoom(ctx, actor, p.RoomName)
	if err != nil {
		return nil, err
	}
	// Group add and snapshot pushes ride the membership.added event so that
	// every membership path flows through the same bridge update.
	return d.rooms.Snapshot(ctx, joined)
}

func (d *Dispatcher) leaveRoom(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p roomNamePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomEntity(ctx, p.RoomName)
	if err != nil {
		return nil, err
	}
	left, err := d.membership.LeaveRoom(ctx, actor.ID, target)
	if err != nil {
		return nil, err
	}
	return d.rooms.Snapshot(ctx, left)
}

type targetUserPayload struct {
	RoomName string `json:"roomName"`
	UserID   string `json:"userId"`
}

func (d *Dispatcher) kickUser(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p targetUserPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomEntity(ctx, p.RoomName)
	if err != nil {
		return nil, err
	}
	updated, err := d.membership.KickUserFromRoom(ctx, target, p.UserID, actor.ID)
	if err != nil {
		return nil, err
	}
	return d.rooms.Snapshot(ctx, updated)
}

func (d *Dispatcher) banUser(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p targetUserPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomEntity(ctx, p.RoomName)
	if err != nil {
		return nil, err
	}
	updated, err := d.membership.BanUserFromRoom(ctx, target, p.UserID, actor.ID)
	if err != nil {
		return nil, err
	}
	return d.rooms.Snapshot(ctx, updated)
}

func (d *Dispatcher) fetchRoom(ctx context.Context, raw json.RawMessage) (any, error) {
	var p roomNamePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return d.rooms.FetchRoom(ctx, p.RoomName)
}

func (d *Dispatcher) fetchAllRooms(ctx context.Context) (any, error) {
	return d.rooms.FetchAllRooms(ctx)
}

func (d *Dispatcher) fetchUserRooms(ctx context.Context, actor *domain.User) (any, error) {
	return d.rooms.FetchUserRooms(ctx, actor.ID)
}

type sendMessagePayload struct {
	RoomName string `json:"roomName"`
	Message  struct {
		Text string `json:"text"`
	} `json:"message"`
}

func (d *Dispatcher) sendMessage(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p sendMessagePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if err := d.rooms.CheckMessageContent(p.Message.Text); err != nil {
		return nil, err
	}
	target, err := d.rooms.FetchRoomEntity(ctx, p.RoomName)
	if err != nil {
		return nil, err
	}

	msg := message.NewFromUser(actor, p.Message.Text)
	saved, err := d.rooms.SaveChatHistory(ctx, target, msg)
	if err != nil {
		return nil, err
	}

	if payload, err := marshalPush(PushNewMessage, saved); err == nil {
		d.bridge.BroadcastToRoom(target.ID, payload)
	}
	return saved, nil
}

type editMessagePayload struct {
	RoomName      string         `json:"roomName"`
	EditedMessage domain.Message `json:"editedMessage"`
}

func (d *Dispatcher) editMessage(ctx context.Context, actor *domain.User, raw json.RawMessage) (any, error) {
	var p editMessagePayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := d.rooms.CheckMessageContent(p.EditedMessage.Text); err != nil {
		return nil, err
	}

	target, err := d.rooms.FetchRoomEntity(ctx, p.RoomName)
	if err != nil {
		return nil, err
	}

	var original *domain.Message
	for i := range target.ChatHistory {
		if target.ChatHistory[i].ID == p.EditedMessage.ID {
			original = &target.ChatHistory[i]
			break
		}
	}
	if original == nil {
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "message not found in chat history").WithField("editedMessage")
	}
	if err := d.users.CheckMessageAuthorship(*original, actor.ID); err != nil {
		return nil, err
	}

	updated, err := d.users.EditMessage(ctx, p.EditedMessage, target)
	if err != nil {
		return nil, err
	}

	d.pushRoomData(ctx, updated)
	return d.rooms.Snapshot(ctx, updated)
}

// pushRoomData snapshots the room it was handed, which the caller just
// received from the store, and broadcasts the full state to the room's group.
func (d *Dispatcher) pushRoomData(ctx context.Context, r *domain.Room) {
	snap, err := d.rooms.Snapshot(ctx, r)
	if err != nil {
		d.logger.Error("failed to build room snapshot for push", "room", r.Name, "error", err)
		return
	}
	payload, err := marshalPush(PushRoomDataUpdate, snap)
	if err != nil {
		d.logger.Error("failed to marshal room data push", "room", r.Name, "error", err)
		return
	}
	d.bridge.BroadcastToRoom(r.ID, payload)
}

// pushRoomsList broadcasts the full room list to every connected client.
func (d *Dispatcher) pushRoomsList(ctx context.Context) {
	rooms, err := d.rooms.FetchAllRooms(ctx)
	if err != nil {
		d.logger.Error("failed to fetch rooms for list push", "error", err)
		return
	}
	payload, err := marshalPush(PushRoomsListUpdate, rooms)
	if err != nil {
		d.logger.Error("failed to marshal rooms list push", "error", err)
		return
	}
	d.bridge.BroadcastAll(payload)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return domain.NewError(domain.ErrValidationMissingData, "event payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewError(domain.ErrValidationMissingData, "event payload is malformed").WithCause(err)
	}
	return nil
}
