package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// LoginInput selects who to log in as: a specific user, or the first
// directory entry holding a role.
type LoginInput struct {
	UserID string
	Role   domain.Role
}

// LoginResult carries the issued session.
type LoginResult struct {
	User    domain.User
	Session domain.Session
	Token   string
}

// SessionService picks an identity from the directory and issues a session
// token for it. There are no credentials.
type SessionService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	sessions *auth.SessionRegistry
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	onLogout []func(userID string)
}

// NewSessionService builds the service.
func NewSessionService(users repository.UserRepository, tokens *auth.TokenManager, sessions *auth.SessionRegistry, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{users: users, tokens: tokens, sessions: sessions, logger: logger, now: time.Now}
}

// OnLogout registers fn to run after a session ends, so per-user state such
// as chat conversations can be dropped.
func (s *SessionService) OnLogout(fn func(userID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Login selects a user and opens a session.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.selectUser(ctx, input)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	token, err := s.tokens.GenerateToken(session)
	if err != nil {
		return LoginResult{}, apperrors.NewInternalError(err)
	}
	s.sessions.Add(session)

	s.logger.Info("session opened", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return LoginResult{User: user, Session: session, Token: token}, nil
}

func (s *SessionService) selectUser(ctx context.Context, input LoginInput) (domain.User, error) {
	switch {
	case input.UserID != "":
		user, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.User{}, apperrors.NewNotFound("user", map[string]any{"id": input.UserID})
			}
			return domain.User{}, apperrors.MapError(err)
		}
		return user, nil
	case input.Role != "":
		if !input.Role.Valid() {
			return domain.User{}, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
		}
		user, err := s.users.FirstByRole(ctx, input.Role)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.User{}, apperrors.NewNotFound("user", map[string]any{"role": input.Role})
			}
			return domain.User{}, apperrors.MapError(err)
		}
		return user, nil
	default:
		return domain.User{}, apperrors.NewValidationError("role or user_id required", nil)
	}
}

// Logout ends the session. Ending an unknown session is not an error. The
// logout hooks run only once the user's last live session is gone, since
// per-user state is shared between sessions.
func (s *SessionService) Logout(_ context.Context, principal auth.Principal) {
	if !s.sessions.Remove(principal.SessionID) {
		return
	}
	if s.sessions.HasUser(principal.User.ID, s.now()) {
		s.logger.Info("session closed", zap.String("user_id", principal.User.ID))
		return
	}
	s.mu.Lock()
	hooks := append([]func(string){}, s.onLogout...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(principal.User.ID)
	}
	s.logger.Info("session closed", zap.String("user_id", principal.User.ID))
}

// Directory lists users, optionally restricted to one role.
func (s *SessionService) Directory(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if role == "" {
		return users, nil
	}
	out := make([]domain.User, 0, len(users))
	for _, user := range users {
		if user.Role == role {
			out = append(out, user)
		}
	}
	return out, nil
}
