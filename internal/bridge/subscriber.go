package bridge

import (
	"context"
	"encoding/json"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/membership"
	"github.com/banterhq/banter/internal/message"
	"github.com/banterhq/banter/internal/pubsub"
)

// ListenMembership subscribes the dispatcher to membership transitions so
// broadcast groups mirror persisted membership on every path, including
// cascades that run during token verification, far from any connection's
// own event handler.
func (d *Dispatcher) ListenMembership(ctx context.Context, sub pubsub.Subscriber) error {
	if err := sub.Subscribe(ctx, membership.TopicMemberAdded, d.handleMemberAdded); err != nil {
		return err
	}
	return sub.Subscribe(ctx, membership.TopicMemberRemoved, d.handleMemberRemoved)
}

func (d *Dispatcher) handleMemberAdded(ctx context.Context, msg pubsub.Message) error {
	var event membership.MemberEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		d.logger.Error("malformed membership event", "topic", msg.Topic, "error", err)
		return nil
	}

	d.bridge.JoinGroup(event.RoomID, event.UserID)
	d.appendNotice(ctx, event, d.displayName(ctx, event.UserID)+" joined the room")
	d.refreshRoom(ctx, event.RoomID)
	d.pushRoomsList(ctx)
	return nil
}

// handleMemberRemoved applies a removal to the broadcast group. For kicks
// and bans the affected user's own connections get the reason notification
// first, while they are still grouped; an offline user is a pure state
// quiesce: no group change needed, no notification sent.
func (d *Dispatcher) handleMemberRemoved(ctx context.Context, msg pubsub.Message) error {
	var event membership.MemberEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		d.logger.Error("malformed membership event", "topic", msg.Topic, "error", err)
		return nil
	}

	switch event.Reason {
	case membership.ReasonKicked:
		d.notify(event.UserID, PushKicked, event)
	case membership.ReasonBanned:
		d.notify(event.UserID, PushBanned, event)
	}

	d.bridge.LeaveGroup(event.RoomID, event.UserID)
	d.appendNotice(ctx, event, removalNotice(event.Reason, d.displayName(ctx, event.UserID)))
	d.refreshRoom(ctx, event.RoomID)
	d.pushRoomsList(ctx)
	return nil
}

func removalNotice(reason membership.RemovalReason, name string) string {
	switch reason {
	case membership.ReasonKicked:
		return name + " was kicked from the room"
	case membership.ReasonBanned:
		return name + " was banned from the room"
	default:
		return name + " left the room"
	}
}

// appendNotice records a system message (no author) in the room's chat
// history. The room may already be gone; then the notice is dropped.
func (d *Dispatcher) appendNotice(ctx context.Context, event membership.MemberEvent, text string) {
	target := &domain.Room{ID: event.RoomID, Name: event.RoomName}
	if _, err := d.rooms.SaveChatHistory(ctx, target, message.New(nil, text)); err != nil {
		d.logger.Debug("skipping system notice", "room", event.RoomName, "error", err)
	}
}

// displayName resolves the user's name for notices, falling back to the id
// when the user record is gone.
func (d *Dispatcher) displayName(ctx context.Context, userID string) string {
	if u, err := d.users.ResolveUser(ctx, userID); err == nil {
		return u.Name
	}
	return userID
}

func (d *Dispatcher) notify(userID, event string, data any) {
	payload, err := marshalPush(event, data)
	if err != nil {
		d.logger.Error("failed to marshal notification", "event", event, "error", err)
		return
	}
	if !d.bridge.SendToUser(userID, payload) {
		d.logger.Debug("notification target offline", "event", event, "user", userID)
	}
}

// refreshRoom re-fetches the room and pushes a full-state snapshot to its
// group. The room may be gone by the time the event is handled; that is fine,
// the group is gone with it.
func (d *Dispatcher) refreshRoom(ctx context.Context, roomID string) {
	r, err := d.rooms.FetchRoomByID(ctx, roomID)
	if err != nil {
		d.logger.Debug("skipping room refresh", "room", roomID, "error", err)
		return
	}
	d.pushRoomData(ctx, r)
}
