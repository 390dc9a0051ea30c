// Package testutils provides in-memory store implementations shared by the
// service tests. They honor the same sentinel errors and atomic-set semantics
// as the SurrealDB stores.
package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/domain"
	"github.com/google/uuid"
)

// MemRoomStore is an in-memory database.RoomStore.
type MemRoomStore struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room

	// FailWith, when set, makes every mutating call fail with the given
	// error. Lets tests exercise persistence-failure paths.
	FailWith error
}

// NewMemRoomStore creates an empty in-memory room store.
func NewMemRoomStore() *MemRoomStore {
	return &MemRoomStore{rooms: make(map[string]*domain.Room)}
}

func (s *MemRoomStore) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	for _, r := range s.rooms {
		if r.Name == room.Name {
			return nil, database.ErrAlreadyExists
		}
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	stored := cloneRoom(room)
	s.rooms[room.ID] = stored
	return cloneRoom(stored), nil
}

func (s *MemRoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneRoom(r), nil
}

func (s *MemRoomStore) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if r.Name == name {
			return cloneRoom(r), nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *MemRoomStore) FindOtherByName(ctx context.Context, name, excludingID string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if r.Name == name && r.ID != excludingID {
			return cloneRoom(r), nil
		}
	}
	return nil, nil
}

func (s *MemRoomStore) FindAll(ctx context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *cloneRoom(r))
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *MemRoomStore) FindByAuthor(ctx context.Context, authorID string) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Room
	for _, r := range s.rooms {
		if r.Author == authorID {
			out = append(out, *cloneRoom(r))
		}
	}
	return out, nil
}

func (s *MemRoomStore) FindByMember(ctx context.Context, userID string) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Room
	for _, r := range s.rooms {
		if slices.Contains(r.UsersInRoom, userID) {
			out = append(out, *cloneRoom(r))
		}
	}
	return out, nil
}

func (s *MemRoomStore) UpdateDetails(ctx context.Context, id, name, description string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	r, ok := s.rooms[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	for _, other := range s.rooms {
		if other.ID != id && other.Name == name {
			return nil, database.ErrAlreadyExists
		}
	}
	r.Name = name
	r.Description = description
	return cloneRoom(r), nil
}

func (s *MemRoomStore) AddMember(ctx context.Context, id, userID string) (*domain.Room, error) {
	return s.mutate(id, func(r *domain.Room) {
		if !slices.Contains(r.UsersInRoom, userID) {
			r.UsersInRoom = append(r.UsersInRoom, userID)
		}
	})
}

func (s *MemRoomStore) RemoveMember(ctx context.Context, id, userID string) (*domain.Room, error) {
	return s.mutate(id, func(r *domain.Room) {
		r.UsersInRoom = slices.DeleteFunc(r.UsersInRoom, func(u string) bool { return u == userID })
	})
}

func (s *MemRoomStore) AddBan(ctx context.Context, id, userID string) (*domain.Room, error) {
	return s.mutate(id, func(r *domain.Room) {
		if !slices.Contains(r.BannedUsersFromRoom, userID) {
			r.BannedUsersFromRoom = append(r.BannedUsersFromRoom, userID)
		}
	})
}

func (s *MemRoomStore) AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Room, error) {
	return s.mutate(id, func(r *domain.Room) {
		r.ChatHistory = append(r.ChatHistory, msg)
	})
}

func (s *MemRoomStore) ReplaceChatHistory(ctx context.Context, id string, history []domain.Message) (*domain.Room, error) {
	return s.mutate(id, func(r *domain.Room) {
		r.ChatHistory = slices.Clone(history)
	})
}

func (s *MemRoomStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	if _, ok := s.rooms[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

func (s *MemRoomStore) mutate(id string, fn func(*domain.Room)) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	r, ok := s.rooms[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	fn(r)
	return cloneRoom(r), nil
}

func cloneRoom(r *domain.Room) *domain.Room {
	out := *r
	out.UsersInRoom = slices.Clone(r.UsersInRoom)
	out.BannedUsersFromRoom = slices.Clone(r.BannedUsersFromRoom)
	out.ChatHistory = slices.Clone(r.ChatHistory)
	return &out
}

// MemUserStore is an in-memory database.UserStore.
type MemUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

// NewMemUserStore creates an in-memory user store seeded with the given
// users.
func NewMemUserStore(users ...*domain.User) *MemUserStore {
	s := &MemUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put adds or replaces a user.
func (s *MemUserStore) Put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = cloneUser(u)
}

func (s *MemUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemUserStore) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (s *MemUserStore) AppendSessionToken(ctx context.Context, userID string, token domain.SessionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.SessionTokens = append(u.SessionTokens, token)
	return nil
}

func (s *MemUserStore) RevokeSessionToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.SessionTokens = slices.DeleteFunc(u.SessionTokens, func(t domain.SessionToken) bool {
		return t.Token == token
	})
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	out := *u
	out.SessionTokens = slices.Clone(u.SessionTokens)
	return &out
}
