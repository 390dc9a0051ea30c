// Package auth verifies signed session tokens. Token expiry is the one
// authentication event with a mandated side effect: before the caller learns
// the token is expired, the owning user is removed from every room and the
// token record is invalidated, so stale membership never outlives the
// discovery of its session's death.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/banterhq/banter/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload extracted from a verified session token.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// CascadeRemover runs the global membership cascade for a user. Satisfied by
// the membership manager.
type CascadeRemover interface {
	RemoveUserFromAllRooms(ctx context.Context, userID string) error
}

// TokenStore is the slice of the user store the auth service needs.
type TokenStore interface {
	AppendSessionToken(ctx context.Context, userID string, token domain.SessionToken) error
	RevokeSessionToken(ctx context.Context, userID, token string) error
}

// Service issues and verifies HMAC-signed session tokens.
type Service struct {
	secret  []byte
	ttl     time.Duration
	cascade CascadeRemover
	tokens  TokenStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates an auth service.
func NewService(secret []byte, ttl time.Duration, cascade CascadeRemover, tokens TokenStore) *Service {
	return &Service{
		secret:  secret,
		ttl:     ttl,
		cascade: cascade,
		tokens:  tokens,
		logger:  slog.Default().With("service", "auth"),
		now:     time.Now,
	}
}

// WithClock overrides the service's clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IssueSessionToken signs a new token for the user and records it on the
// user's valid-token list, which is authoritative for validity.
func (s *Service) IssueSessionToken(ctx context.Context, user *domain.User) (string, error) {
	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.NewError(domain.ErrPersistenceUpdate, "could not sign session token").WithCause(err)
	}

	record := domain.SessionToken{Token: token, IssuedAtUnix: issuedAt.Unix()}
	if err := s.tokens.AppendSessionToken(ctx, user.ID, record); err != nil {
		return "", domain.NewError(domain.ErrPersistenceUpdate, "could not store session token").WithCause(err)
	}
	return token, nil
}

// VerifySessionToken validates the token's signature and expiry and returns
// its payload. A structurally valid but expired token triggers the cascade
// cleanup and token invalidation before the AuthExpired error is returned;
// that ordering is mandatory. Whether the token is still among the user's
// stored tokens is checked downstream by the user service.
func (s *Service) VerifySessionToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, domain.NewError(domain.ErrAuthInvalid, "no session token provided")
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, s.handleExpired(ctx, token)
		}
		return nil, domain.NewError(domain.ErrAuthInvalid, "session token is malformed or invalid").WithCause(err)
	}

	return claimsFrom(parsed)
}

// handleExpired re-reads the payload ignoring expiry, runs the global
// membership cascade for the token's owner and revokes the token record,
// then reports the expiry. The caller's response blocks until cleanup is
// done, so no caller can observe stale membership after learning the token
// expired.
func (s *Service) handleExpired(ctx context.Context, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.NewError(domain.ErrAuthInvalid, "session token is malformed or invalid").WithCause(err)
	}
	claims, err := claimsFrom(parsed)
	if err != nil {
		return err
	}

	s.logger.Info("session expired, running membership cascade", "user", claims.UserID)

	if err := s.cascade.RemoveUserFromAllRooms(ctx, claims.UserID); err != nil {
		s.logger.Error("membership cascade failed for expired session", "user", claims.UserID, "error", err)
	}
	if err := s.tokens.RevokeSessionToken(ctx, claims.UserID, token); err != nil {
		s.logger.Error("failed to revoke expired session token", "user", claims.UserID, "error", err)
	}

	return domain.NewError(domain.ErrAuthExpired, "session has expired")
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}

func claimsFrom(parsed *jwt.Token) (*Claims, error) {
	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || reg.Subject == "" {
		return nil, domain.NewError(domain.ErrAuthInvalid, "session token carries no user identity")
	}
	c := &Claims{UserID: reg.Subject}
	if reg.ExpiresAt != nil {
		c.ExpiresAt = reg.ExpiresAt.Time
	}
	return c, nil
}
