package database

import (
	"context"

	"github.com/banterhq/banter/internal/domain"
)

// RoomStore defines the persistence operations for rooms. Membership and
// ban-list mutations are atomic set operations at the storage layer: two
// concurrent changes to the same room can interleave without one overwriting
// the other's whole array.
type RoomStore interface {
	// Create persists a new room. A duplicate name fails with
	// ErrAlreadyExists.
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)

	// FindByID retrieves a room by id, ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// FindByName retrieves a room by its unique name, ErrNotFound if absent.
	FindByName(ctx context.Context, name string) (*domain.Room, error)

	// FindOtherByName looks for a room with the given name whose id differs
	// from excludingID. Returns nil, nil when the name is free.
	FindOtherByName(ctx context.Context, name, excludingID string) (*domain.Room, error)

	// FindAll lists every room.
	FindAll(ctx context.Context) ([]domain.Room, error)

	// FindByAuthor lists rooms owned by the given user.
	FindByAuthor(ctx context.Context, authorID string) ([]domain.Room, error)

	// FindByMember lists rooms whose usersInRoom contains userID. This is the
	// reverse query backing cascade cleanup.
	FindByMember(ctx context.Context, userID string) ([]domain.Room, error)

	// UpdateDetails replaces the room's name and description and returns the
	// updated document.
	UpdateDetails(ctx context.Context, id, name, description string) (*domain.Room, error)

	// AddMember atomically adds userID to usersInRoom (set semantics) and
	// returns the updated document.
	AddMember(ctx context.Context, id, userID string) (*domain.Room, error)

	// RemoveMember atomically removes userID from usersInRoom and returns the
	// updated document.
	RemoveMember(ctx context.Context, id, userID string) (*domain.Room, error)

	// AddBan atomically adds userID to bannedUsersFromRoom and returns the
	// updated document.
	AddBan(ctx context.Context, id, userID string) (*domain.Room, error)

	// AppendMessage atomically appends a message to chatHistory and returns
	// the updated document.
	AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Room, error)

	// ReplaceChatHistory overwrites the whole chat history. Used by the one
	// sanctioned message-edit path.
	ReplaceChatHistory(ctx context.Context, id string, history []domain.Message) (*domain.Room, error)

	// Delete removes the room, ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// UserStore defines the persistence operations the chat core needs for users.
// Signup, signin and password handling live behind another boundary and are
// intentionally not part of this interface.
type UserStore interface {
	// FindByID retrieves a user by id, ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByIDs retrieves the users for the given ids, skipping missing ones.
	FindByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// AppendSessionToken adds a token record to the user's valid-token list.
	AppendSessionToken(ctx context.Context, userID string, token domain.SessionToken) error

	// RevokeSessionToken removes a token record from the user's valid-token
	// list. Revoking a token that is already gone is not an error.
	RevokeSessionToken(ctx context.Context, userID, token string) error
}
