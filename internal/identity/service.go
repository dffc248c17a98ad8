// Package identity is the sign-in backend: it checks credentials against the
// users table, issues access tokens and tracks which remote sessions are live.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/akbidlab/internal/cache"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/security"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrSessionNotFound    = errors.New("session not found")
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// Session is the remote session handed out on sign-in.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthResult struct {
	User    user.User
	Session Session
}

type Service struct {
	users  UserRepository
	tokens *TokenManager
	live   *cache.Cache[string] // jti -> user id
	log    *slog.Logger
	now    func() time.Time
}

func NewService(users UserRepository, tokens *TokenManager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		live:   cache.New[string](tokens.TTL()),
		log:    log,
		now:    time.Now,
	}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		return AuthResult{}, ErrInactiveAccount
	}

	if err := u.Validate(); err != nil {
		s.log.WarnContext(ctx, "identity: stored profile failed validation", "user_id", u.ID, "err", err)
		return AuthResult{}, ErrProfileNotFound
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		// the sign-in itself succeeded, a stale last_login is tolerable
		s.log.WarnContext(ctx, "identity: update last_login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLogin = &now
	}

	sess, err := s.issue(u)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: u, Session: sess}, nil
}

func (s *Service) SignUp(ctx context.Context, data user.SignUpData) (user.User, error) {
	data.Email = strings.ToLower(strings.TrimSpace(data.Email))
	data.Name = strings.TrimSpace(data.Name)

	if err := data.Validate(); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(data.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := user.User{
		ID:            uuid.NewString(),
		Email:         data.Email,
		PasswordHash:  hash,
		Name:          data.Name,
		Role:          data.Role,
		NimNip:        user.StringPtr(strings.TrimSpace(data.NimNip)),
		IsActive:      true,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	return created, nil
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return err
	}
	if _, ok := s.live.Get(claims.JTI); !ok {
		return ErrSessionNotFound
	}
	s.live.Delete(claims.JTI)
	s.log.DebugContext(ctx, "identity: signed out", "user_id", claims.UserID)
	return nil
}

func (s *Service) GetSession(_ context.Context, accessToken string) (Session, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return Session{}, err
	}
	if _, ok := s.live.Get(claims.JTI); !ok {
		return Session{}, ErrSessionNotFound
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Session{AccessToken: accessToken, UserID: claims.UserID, ExpiresAt: exp}, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, accessToken string) (user.User, error) {
	sess, err := s.GetSession(ctx, accessToken)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return user.User{}, err
	}
	if err := u.Validate(); err != nil {
		return user.User{}, err
	}
	if !u.IsActive {
		return user.User{}, ErrInactiveAccount
	}
	return u, nil
}

func (s *Service) issue(u user.User) (Session, error) {
	raw, claims, err := s.tokens.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	s.live.Set(claims.JTI, u.ID)

	return Session{
		AccessToken: raw,
		UserID:      u.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
