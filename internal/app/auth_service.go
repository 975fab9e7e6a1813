package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"race-quiz-service/internal/domain"
)

const minSecretLength = 6

// AuthService is the identity provider boundary: registration with the
// first-user-is-admin bootstrap, token login, and role administration.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	now      func() time.Time
	newID    func() string
}

func NewAuthService(users UserStore, sessions SessionStore) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewAuthServiceWithClock is test-only for deterministic time and ids.
func NewAuthServiceWithClock(users UserStore, sessions SessionStore, now func() time.Time, newID func() string) *AuthService {
	return &AuthService{users: users, sessions: sessions, now: now, newID: newID}
}

// Register creates a user. The very first user ever registered becomes the
// administrator; everyone after that is a participant. The rule is evaluated
// once, here, and never re-checked later.
func (s *AuthService) Register(ctx context.Context, email, secret, username string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.Validationf("email", "must be a valid address")
	}
	if len(secret) < minSecretLength {
		return domain.User{}, domain.Validationf("password", "must be at least %d characters", minSecretLength)
	}
	if username == "" {
		return domain.User{}, domain.Validationf("username", "must not be empty")
	}

	if _, taken, err := s.users.GetByEmail(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	} else if taken {
		return domain.User{}, domain.ErrEmailTaken
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("count users: %w", err)
	}
	role := domain.RoleParticipant
	if count == 0 {
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           s.newID(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("store user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and issues an opaque session token.
func (s *AuthService) Login(ctx context.Context, email, secret string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup email: %w", err)
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token := s.newID()
	if err := s.sessions.Put(ctx, token, user.ID); err != nil {
		return domain.User{}, "", fmt.Errorf("store session: %w", err)
	}
	return user, token, nil
}

// Logout drops the session token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a token to an actor. Missing, expired, and stale
// tokens all resolve to the anonymous actor, not an error.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, nil
	}
	userID, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return Actor{}, fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return Actor{}, nil
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Actor{}, nil
		}
		return Actor{}, err
	}
	return Actor{ID: user.ID, Role: user.Role}, nil
}

// ListUsers returns every registered user. Administrators only.
func (s *AuthService) ListUsers(ctx context.Context, actor Actor) ([]domain.User, error) {
	if err := Authorize(actor, OpManageUsers, domain.PhaseOpen, false); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// SetRole changes another user's role. Administrators only, and never their
// own role, so a deployment cannot lose its last admin by accident.
func (s *AuthService) SetRole(ctx context.Context, actor Actor, userID string, role domain.Role) error {
	if err := Authorize(actor, OpManageUsers, domain.PhaseOpen, false); err != nil {
		return err
	}
	if role != domain.RoleAdmin && role != domain.RoleParticipant {
		return domain.Validationf("role", "unknown role %q", role)
	}
	if actor.ID == userID {
		return domain.Validationf("role", "cannot change your own role")
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	return s.users.SetRole(ctx, userID, role)
}
