// Package user resolves identities and enforces the two ownership rules of
// the chat domain: only a room's author administers it, and only a message's
// original author edits it.
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/domain"
)

// Service implements identity resolution and authorship checks.
type Service struct {
	users  database.UserStore
	rooms  database.RoomStore
	logger *slog.Logger
}

// NewService creates a user service.
func NewService(users database.UserStore, rooms database.RoomStore) *Service {
	return &Service{
		users:  users,
		rooms:  rooms,
		logger: slog.Default().With("service", "user"),
	}
}

// ResolveUser fetches the user for an id. An unknown id is an authorization
// failure, not a lookup miss: callers only hold ids taken from tokens.
func (s *Service) ResolveUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.NewError(domain.ErrUnauthorized, "no user identity")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NewError(domain.ErrUnauthorized, "unknown user")
		}
		return nil, domain.NewError(domain.ErrPersistenceRetrieval, "could not fetch user").WithCause(err)
	}
	return u, nil
}

// ResolveSession resolves the user and verifies that the presented token is
// among their stored valid session tokens. A structurally valid token that
// the user never held (or no longer holds) is Unauthorized.
func (s *Service) ResolveSession(ctx context.Context, id, token string) (*domain.User, error) {
	u, err := s.ResolveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.HasSessionToken(token) {
		return nil, domain.NewError(domain.ErrUnauthorized, "session token is not valid for this user")
	}
	return u, nil
}

// CheckRoomOwnership fails unless userID is the room's author.
func (s *Service) CheckRoomOwnership(roomAuthorID, userID string) error {
	if roomAuthorID == "" || roomAuthorID != userID {
		return domain.NewError(domain.ErrNotRoomAuthor, "only the room's author can do this")
	}
	return nil
}

// CheckMessageAuthorship fails unless userID matches the author id captured
// on the message when it was sent.
func (s *Service) CheckMessageAuthorship(msg domain.Message, userID string) error {
	if msg.Author == nil || msg.Author.ID != userID {
		return domain.NewError(domain.ErrUnauthorized, "only the message's author can edit it")
	}
	return nil
}

// EditMessage replaces the text of the matching message in the room's chat
// history, marks it edited, persists the whole updated history and returns
// the refreshed room. The author id on the stored message never changes.
func (s *Service) EditMessage(ctx context.Context, edited domain.Message, room *domain.Room) (*domain.Room, error) {
	idx := -1
	for i := range room.ChatHistory {
		if room.ChatHistory[i].ID == edited.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "message not found in chat history").WithField("editedMessage")
	}

	history := make([]domain.Message, len(room.ChatHistory))
	copy(history, room.ChatHistory)
	history[idx].Text = edited.Text
	history[idx].Edited = true

	updated, err := s.rooms.ReplaceChatHistory(ctx, room.ID, history)
	if err != nil {
		s.logger.Error("failed to persist edited chat history", "room", room.Name, "message", edited.ID, "error", err)
		return nil, domain.NewError(domain.ErrPersistenceUpdate, "could not update message").WithCause(err)
	}
	return updated, nil
}
