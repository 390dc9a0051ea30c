// Package room implements room lifecycle and chat-history persistence,
// independent of live connections. Membership mutations are not here; they
// belong to the membership manager.
package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/moderation"
)

// Service implements room lifecycle operations against the room store.
type Service struct {
	rooms     database.RoomStore
	users     database.UserStore
	moderator moderation.Moderator
	logger    *slog.Logger
}

// NewService creates a room service.
func NewService(rooms database.RoomStore, users database.UserStore, moderator moderation.Moderator) *Service {
	return &Service{
		rooms:     rooms,
		users:     users,
		moderator: moderator,
		logger:    slog.Default().With("service", "room"),
	}
}

// CreateRoom validates and persists a new room owned by owner. The owner is
// the room's first member; the ban list starts empty.
func (s *Service) CreateRoom(ctx context.Context, owner *domain.User, draft domain.RoomDraft) (*domain.Room, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := s.moderate(draft); err != nil {
		return nil, err
	}

	room := &domain.Room{
		Name:                draft.Name,
		Description:         draft.Description,
		Author:              owner.ID,
		UsersInRoom:         []string{owner.ID},
		BannedUsersFromRoom: []string{},
		ChatHistory:         []domain.Message{},
	}

	created, err := s.rooms.Create(ctx, room)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, domain.NewError(domain.ErrRoomNameTaken, "a room with this name already exists").WithField("name")
		}
		s.logger.Error("failed to persist new room", "name", draft.Name, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not create room").WithCause(err)
	}
	return created, nil
}

// EditRoom re-moderates and replaces the target room's name and description.
func (s *Service) EditRoom(ctx context.Context, draft domain.RoomDraft, target *domain.Room) (*domain.Room, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := s.moderate(draft); err != nil {
		return nil, err
	}

	updated, err := s.rooms.UpdateDetails(ctx, target.ID, draft.Name, draft.Description)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, domain.NewError(domain.ErrRoomNameTaken, "a room with this name already exists").WithField("name")
		}
		s.logger.Error("failed to persist room edit", "room", target.ID, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not update room").WithCause(err)
	}
	return updated, nil
}

// DeleteRoom removes the room.
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	if err := s.rooms.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		s.logger.Error("failed to delete room", "room", id, "error", err)
		return domain.NewError(domain.ErrPersistenceUpdate, "could not delete room").WithCause(err)
	}
	return nil
}

// FetchRoom retrieves a room by name and expands its membership to user
// summaries. Passwords and token lists never appear in a snapshot.
func (s *Service) FetchRoom(ctx context.Context, name string) (*domain.RoomSnapshot, error) {
	if name == "" {
		return nil, domain.NewError(domain.ErrRoomQueryInvalid, "room name is required").WithField("roomName")
	}
	room, err := s.rooms.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch room").WithCause(err)
	}
	return s.Snapshot(ctx, room)
}

// FetchRoomByID retrieves the raw room entity by id.
func (s *Service) FetchRoomByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.NewError(domain.ErrRoomQueryInvalid, "room id is required").WithField("roomId")
	}
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch room").WithCause(err)
	}
	return room, nil
}

// FetchRoomEntity retrieves the raw room entity by name, without expanding
// membership. Internal lookup for operations that mutate the room.
func (s *Service) FetchRoomEntity(ctx context.Context, name string) (*domain.Room, error) {
	if name == "" {
		return nil, domain.NewError(domain.ErrRoomQueryInvalid, "room name is required").WithField("roomName")
	}
	room, err := s.rooms.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrRoomNotFound, "room not found")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch room").WithCause(err)
	}
	return room, nil
}

// FetchMemberRooms lists the rooms the given user is currently a member of.
func (s *Service) FetchMemberRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	rooms, err := s.rooms.FindByMember(ctx, userID)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not list member rooms").WithCause(err)
	}
	return rooms, nil
}

// FetchAllRooms lists every room.
func (s *Service) FetchAllRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.rooms.FindAll(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not list rooms").WithCause(err)
	}
	return rooms, nil
}

// FetchUserRooms lists the rooms owned by the given user.
func (s *Service) FetchUserRooms(ctx context.Context, ownerID string) ([]domain.Room, error) {
	rooms, err := s.rooms.FindByAuthor(ctx, ownerID)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not list user's rooms").WithCause(err)
	}
	return rooms, nil
}

// SaveChatHistory appends the message to the room's history and persists it.
// The returned message is re-read from the persisted document rather than
// echoed from memory, so it reflects exactly what was stored.
func (s *Service) SaveChatHistory(ctx context.Context, room *domain.Room, msg domain.Message) (domain.Message, error) {
	updated, err := s.rooms.AppendMessage(ctx, room.ID, msg)
	if err != nil {
		s.logger.Error("failed to persist chat message", "room", room.Name, "error", err)
		return domain.Message{}, domain.NewError(domain.ErrPersistenceUpdate, "could not save message").WithCause(err)
	}
	if len(updated.ChatHistory) == 0 {
		return domain.Message{}, domain.NewError(domain.ErrPersistenceRetrieval, "chat history missing after update")
	}
	return updated.ChatHistory[len(updated.ChatHistory)-1], nil
}

// CheckMessageContent gates chat text through the moderation predicate.
func (s *Service) CheckMessageContent(text string) error {
	if s.moderator.IsProfane(text) {
		return domain.NewError(domain.ErrValidationProfaneContent, "message contains disallowed content").WithField("text")
	}
	return nil
}

// CheckNameAvailable fails when another room (different id) already uses the
// name.
func (s *Service) CheckNameAvailable(ctx context.Context, name, excludingID string) error {
	other, err := s.rooms.FindOtherByName(ctx, name, excludingID)
	if err != nil {
		return domain.NewError(domain.ErrPersistenceRetrieval, "could not check room name").WithCause(err)
	}
	if other != nil {
		return domain.NewError(domain.ErrRoomNameTaken, "a room with this name already exists").WithField("name")
	}
	return nil
}

// Snapshot expands a room's membership into user summaries for clients.
func (s *Service) Snapshot(ctx context.Context, room *domain.Room) (*domain.RoomSnapshot, error) {
	members, err := s.users.FindByIDs(ctx, room.UsersInRoom)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not resolve room members").WithCause(err)
	}

	byID := make(map[string]domain.UserSummary, len(members))
	for i := range members {
		byID[members[i].ID] = members[i].Summary()
	}

	// Preserve join order; skip ids the user store no longer knows.
	summaries := make([]domain.UserSummary, 0, len(room.UsersInRoom))
	for _, id := range room.UsersInRoom {
		if summary, ok := byID[id]; ok {
			summaries = append(summaries, summary)
		}
	}

	return &domain.RoomSnapshot{
		ID:                  room.ID,
		Name:                room.Name,
		Description:         room.Description,
		Author:              room.Author,
		UsersInRoom:         summaries,
		BannedUsersFromRoom: room.BannedUsersFromRoom,
		ChatHistory:         room.ChatHistory,
	}, nil
}

func (s *Service) moderate(draft domain.RoomDraft) error {
	if s.moderator.IsProfane(draft.Name) {
		return domain.NewError(domain.ErrValidationProfaneContent, "room name contains disallowed content").WithField("name")
	}
	if s.moderator.IsProfane(draft.Description) {
		return domain.NewError(domain.ErrValidationProfaneContent, "room description contains disallowed content").WithField("description")
	}
	return nil
}
