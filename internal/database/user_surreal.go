package database

import (
	"context"
	"fmt"

	"github.com/banterhq/banter/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

const userFields = "*, record::id(id) AS id"

// userRecord is the persisted shape of a user. The domain model hides the
// password and token list from serialization, so the store needs its own
// record type to round-trip them.
type userRecord struct {
	ID            string                `json:"id,omitempty"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Password      string                `json:"password,omitempty"`
	SessionTokens []domain.SessionToken `json:"validTokens"`
	SocketID      string                `json:"socketId,omitempty"`
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		Password:      r.Password,
		SessionTokens: r.SessionTokens,
		SocketID:      r.SocketID,
	}
}

// SurrealUserStore implements UserStore on SurrealDB.
type SurrealUserStore struct {
	db *surrealdb.DB
}

// NewSurrealUserStore creates a new SurrealUserStore.
func NewSurrealUserStore(db *surrealdb.DB) *SurrealUserStore {
	return &SurrealUserStore{db: db}
}

func (s *SurrealUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := "SELECT " + userFields + " FROM type::thing('user', $id)"
	rec, err := QueryOne[userRecord](ctx, s.db, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec.toDomain(), nil
}

func (s *SurrealUserStore) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + userFields + " FROM user WHERE record::id(id) IN $ids"
	records, err := Query[userRecord](ctx, s.db, query, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	users := make([]domain.User, 0, len(records))
	for i := range records {
		users = append(users, *records[i].toDomain())
	}
	return users, nil
}

func (s *SurrealUserStore) AppendSessionToken(ctx context.Context, userID string, token domain.SessionToken) error {
	query := "UPDATE type::thing('user', $id) SET validTokens += $token"
	err := Execute(ctx, s.db, query, map[string]any{
		"id":    userID,
		"token": token,
	})
	if err != nil {
		return fmt.Errorf("failed to append session token: %w", err)
	}
	return nil
}

func (s *SurrealUserStore) RevokeSessionToken(ctx context.Context, userID, token string) error {
	query := "UPDATE type::thing('user', $id) SET validTokens = validTokens[WHERE token != $token]"
	err := Execute(ctx, s.db, query, map[string]any{
		"id":    userID,
		"token": token,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	return nil
}
