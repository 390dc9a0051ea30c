package database

import (
	"context"
	"fmt"

	"github.com/banterhq/banter/internal/domain"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
)

// roomFields projects the record id back to a plain string so the domain
// model stays free of driver types.
const roomFields = "*, record::id(id) AS id"

// SurrealRoomStore implements RoomStore on SurrealDB.
type SurrealRoomStore struct {
	db *surrealdb.DB
}

// NewSurrealRoomStore creates a new SurrealRoomStore.
func NewSurrealRoomStore(db *surrealdb.DB) *SurrealRoomStore {
	return &SurrealRoomStore{db: db}
}

func (s *SurrealRoomStore) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	query := "CREATE type::thing('room', $id) CONTENT $data RETURN " + roomFields
	params := map[string]any{
		"id": room.ID,
		"data": map[string]any{
			"name":                room.Name,
			"description":         room.Description,
			"author":              room.Author,
			"usersInRoom":         room.UsersInRoom,
			"bannedUsersFromRoom": room.BannedUsersFromRoom,
			"chatHistory":         room.ChatHistory,
		},
	}

	created, err := QueryOne[domain.Room](ctx, s.db, query, params)
	if err != nil {
		if isUniquenessViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("room was not created")
	}
	return created, nil
}

func (s *SurrealRoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	query := "SELECT " + roomFields + " FROM type::thing('room', $id)"
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room by id: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *SurrealRoomStore) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	query := "SELECT " + roomFields + " FROM room WHERE name = $name"
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room by name: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *SurrealRoomStore) FindOtherByName(ctx context.Context, name, excludingID string) (*domain.Room, error) {
	query := "SELECT " + roomFields + " FROM room WHERE name = $name AND record::id(id) != $excluding"
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{
		"name":      name,
		"excluding": excludingID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check room name availability: %w", err)
	}
	return room, nil
}

func (s *SurrealRoomStore) FindAll(ctx context.Context) ([]domain.Room, error) {
	query := "SELECT " + roomFields + " FROM room ORDER BY name"
	rooms, err := Query[domain.Room](ctx, s.db, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *SurrealRoomStore) FindByAuthor(ctx context.Context, authorID string) ([]domain.Room, error) {
	query := "SELECT " + roomFields + " FROM room WHERE author = $author ORDER BY name"
	rooms, err := Query[domain.Room](ctx, s.db, query, map[string]any{"author": authorID})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms by author: %w", err)
	}
	return rooms, nil
}

func (s *SurrealRoomStore) FindByMember(ctx context.Context, userID string) ([]domain.Room, error) {
	query := "SELECT " + roomFields + " FROM room WHERE $user IN usersInRoom"
	rooms, err := Query[domain.Room](ctx, s.db, query, map[string]any{"user": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms by member: %w", err)
	}
	return rooms, nil
}

func (s *SurrealRoomStore) UpdateDetails(ctx context.Context, id, name, description string) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET name = $name, description = $description RETURN " + roomFields
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{
		"id":          id,
		"name":        name,
		"description": description,
	})
	if err != nil {
		if isUniquenessViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to update room details: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

// AddMember uses array::union so a concurrent duplicate add stays a set
// insert rather than an append.
func (s *SurrealRoomStore) AddMember(ctx context.Context, id, userID string) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET usersInRoom = array::union(usersInRoom, [$user]) RETURN " + roomFields
	return s.mutateMembership(ctx, query, id, userID)
}

func (s *SurrealRoomStore) RemoveMember(ctx context.Context, id, userID string) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET usersInRoom -= $user RETURN " + roomFields
	return s.mutateMembership(ctx, query, id, userID)
}

func (s *SurrealRoomStore) AddBan(ctx context.Context, id, userID string) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET bannedUsersFromRoom = array::union(bannedUsersFromRoom, [$user]) RETURN " + roomFields
	return s.mutateMembership(ctx, query, id, userID)
}

func (s *SurrealRoomStore) mutateMembership(ctx context.Context, query, id, userID string) (*domain.Room, error) {
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{
		"id":   id,
		"user": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update room membership: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *SurrealRoomStore) AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET chatHistory += $message RETURN " + roomFields
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{
		"id":      id,
		"message": msg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *SurrealRoomStore) ReplaceChatHistory(ctx context.Context, id string, history []domain.Message) (*domain.Room, error) {
	query := "UPDATE type::thing('room', $id) SET chatHistory = $history RETURN " + roomFields
	room, err := QueryOne[domain.Room](ctx, s.db, query, map[string]any{
		"id":      id,
		"history": history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace chat history: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *SurrealRoomStore) Delete(ctx context.Context, id string) error {
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	query := "DELETE type::thing('room', $id)"
	if err := Execute(ctx, s.db, query, map[string]any{"id": existing.ID}); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}
