// Package membership owns the per-(room, user) state machine:
//
//	NotMember -> Member -> {NotMember (left/kicked), Banned}
//
// Banned is terminal and only reachable through a kick. All mutations of a
// room's usersInRoom and bannedUsersFromRoom go through the Manager, which
// serializes them per room and publishes every transition on the bus.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/pubsub"
)

// OwnershipChecker gates kick and ban on room ownership. Satisfied by the
// user service.
type OwnershipChecker interface {
	CheckRoomOwnership(roomAuthorID, userID string) error
}

// Manager applies membership state transitions against the room store.
type Manager struct {
	rooms     database.RoomStore
	ownership OwnershipChecker
	publisher pubsub.Publisher
	locks     *roomLocks
	index     *memberIndex
	logger    *slog.Logger
}

// NewManager creates a membership manager.
func NewManager(rooms database.RoomStore, ownership OwnershipChecker, publisher pubsub.Publisher) *Manager {
	return &Manager{
		rooms:     rooms,
		ownership: ownership,
		publisher: publisher,
		locks:     newRoomLocks(),
		index:     newMemberIndex(),
		logger:    slog.Default().With("service", "membership"),
	}
}

// JoinRoom moves (room, user) from NotMember to Member. A banned user can
// never rejoin; a second join by the same user fails without mutating state.
func (m *Manager) JoinRoom(ctx context.Context, user *domain.User, roomName string) (*domain.Room, error) {
	room, err := m.fetchByName(ctx, roomName)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.acquire(room.ID)
	defer unlock()

	// Re-read under the lock so the checks see the latest persisted state.
	room, err = m.fetchByID(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	if room.IsBanned(user.ID) {
		return nil, domain.NewError(domain.ErrUserBannedFromRoom, "user is banned from this room")
	}
	if room.HasMember(user.ID) {
		return nil, domain.NewError(domain.ErrUserAlreadyInRoom, "user is already in this room")
	}

	updated, err := m.rooms.AddMember(ctx, room.ID, user.ID)
	if err != nil {
		m.logger.Error("failed to persist room join", "room", room.Name, "user", user.ID, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not join room").WithCause(err)
	}

	m.index.add(user.ID, updated.ID)
	m.publish(ctx, TopicMemberAdded, MemberEvent{
		RoomID:   updated.ID,
		RoomName: updated.Name,
		UserID:   user.ID,
	})
	return updated, nil
}

// LeaveRoom moves (room, user) from Member back to NotMember.
func (m *Manager) LeaveRoom(ctx context.Context, userID string, room *domain.Room) (*domain.Room, error) {
	return m.removeMember(ctx, userID, room.ID, ReasonLeft)
}

// KickUserFromRoom is LeaveRoom on behalf of the room owner.
func (m *Manager) KickUserFromRoom(ctx context.Context, room *domain.Room, userID, actingUserID string) (*domain.Room, error) {
	if err := m.ownership.CheckRoomOwnership(room.Author, actingUserID); err != nil {
		return nil, err
	}
	return m.removeMember(ctx, userID, room.ID, ReasonKicked)
}

// BanUserFromRoom kicks first, then records the ban. If the kick fails the
// ban list is never touched; if the ban-list write fails after a successful
// kick the user ends up removed-but-unbanned, and the error reports the
// second step only. There is no rollback.
func (m *Manager) BanUserFromRoom(ctx context.Context, room *domain.Room, userID, actingUserID string) (*domain.Room, error) {
	if err := m.ownership.CheckRoomOwnership(room.Author, actingUserID); err != nil {
		return nil, err
	}

	// The lock spans both writes so a racing join cannot slip in between the
	// kick and the ban-list update and leave the user both member and banned.
	unlock := m.locks.acquire(room.ID)
	defer unlock()

	if _, err := m.removeMemberLocked(ctx, userID, room.ID, ReasonBanned); err != nil {
		return nil, err
	}

	updated, err := m.rooms.AddBan(ctx, room.ID, userID)
	if err != nil {
		m.logger.Error("kick succeeded but ban-list update failed", "room", room.Name, "user", userID, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not record ban").WithCause(err)
	}
	return updated, nil
}

// RemoveUserFromAllRooms is the global cascade: the user is removed from
// every room they are currently a member of. Triggered by session expiry; by
// the time it returns, no room's persisted membership still names the user.
func (m *Manager) RemoveUserFromAllRooms(ctx context.Context, userID string) error {
	roomIDs, err := m.roomsContaining(ctx, userID)
	if err != nil {
		return err
	}

	var errs []error
	for _, roomID := range roomIDs {
		if _, err := m.removeMember(ctx, userID, roomID, ReasonSessionExpired); err != nil {
			// A concurrent leave or room deletion means this room is already
			// done; evict the stale index entry so it cannot resurface on
			// the next cascade, and keep going for the other rooms.
			switch domain.KindOf(err) {
			case domain.ErrUserNotInRoom, domain.ErrRoomNotFound:
				m.index.remove(userID, roomID)
				continue
			}
			errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
		}
	}
	return errors.Join(errs...)
}

// ForgetRoom drops all bookkeeping for a deleted room: its index entries and
// its lock. Called after the room record is gone from the store.
func (m *Manager) ForgetRoom(roomID string) {
	m.index.dropRoom(roomID)
	m.locks.drop(roomID)
}

// roomsContaining unions the in-memory index with the store's reverse query.
// The index covers rooms joined through this process; the query covers
// memberships that predate it.
func (m *Manager) roomsContaining(ctx context.Context, userID string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range m.index.roomsOf(userID) {
		seen[id] = struct{}{}
	}

	rooms, err := m.rooms.FindByMember(ctx, userID)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not list user's rooms").WithCause(err)
	}
	for _, r := range rooms {
		seen[r.ID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Manager) removeMember(ctx context.Context, userID, roomID string, reason RemovalReason) (*domain.Room, error) {
	unlock := m.locks.acquire(roomID)
	defer unlock()
	return m.removeMemberLocked(ctx, userID, roomID, reason)
}

// removeMemberLocked is removeMember without the lock acquisition. The caller
// must hold the room's lock.
func (m *Manager) removeMemberLocked(ctx context.Context, userID, roomID string, reason RemovalReason) (*domain.Room, error) {
	room, err := m.fetchByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasMember(userID) {
		return nil, domain.NewError(domain.ErrUserNotInRoom, "user is not in this room")
	}

	updated, err := m.rooms.RemoveMember(ctx, roomID, userID)
	if err != nil {
		m.logger.Error("failed to persist member removal", "room", room.Name, "user", userID, "reason", reason, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not remove user from room").WithCause(err)
	}

	m.index.remove(userID, roomID)
	m.publish(ctx, TopicMemberRemoved, MemberEvent{
		RoomID:   updated.ID,
		RoomName: updated.Name,
		UserID:   userID,
		Reason:   reason,
	})
	return updated, nil
}

func (m *Manager) fetchByName(ctx context.Context, name string) (*domain.Room, error) {
	if name == "" {
		return nil, domain.NewError(domain.ErrRoomQueryInvalid, "room name is required").WithField("roomName")
	}
	room, err := m.rooms.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch room").WithCause(err)
	}
	return room, nil
}

func (m *Manager) fetchByID(ctx context.Context, id string) (*domain.Room, error) {
	room, err := m.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch room").WithCause(err)
	}
	return room, nil
}

func (m *Manager) publish(ctx context.Context, topic string, event MemberEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("failed to marshal membership event", "topic", topic, "error", err)
		return
	}
	msg := pubsub.Message{
		Topic:   topic,
		RoomID:  event.RoomID,
		UserID:  event.UserID,
		Payload: payload,
	}
	if err := m.publisher.Publish(ctx, msg); err != nil {
		m.logger.Error("failed to publish membership event", "topic", topic, "error", err)
	}
}
