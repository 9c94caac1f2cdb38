package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/auth"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// UserStore is the persistence UserService needs.
type UserStore interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// UserService provides business logic for accounts and sessions
type UserService interface {
	// Signup creates a customer account.
	Signup(ctx context.Context, email, name, password string) (*domain.User, error)

	// Login verifies credentials and opens a session.
	Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)

	// Logout deletes the session. Unknown tokens are ignored.
	Logout(ctx context.Context, token string) error

	// GetUserBySessionToken resolves the user behind a live session.
	GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userService struct {
	store      UserStore
	sessionTTL time.Duration
	metrics    *telemetry.BusinessMetrics
	now        func() time.Time
}

// NewUserService creates a new UserService instance
func NewUserService(store UserStore, sessionTTL time.Duration, metrics *telemetry.BusinessMetrics) UserService {
	if sessionTTL <= 0 {
		sessionTTL = 14 * 24 * time.Hour
	}
	return &userService{
		store:      store,
		sessionTTL: sessionTTL,
		metrics:    metrics,
		now:        time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email, op string) error {
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return domain.NewValidationError(op, "email", "must be a valid email address")
	}
	return nil
}

func (s *userService) Signup(ctx context.Context, email, name, password string) (*domain.User, error) {
	const op = "user.signup"

	email = NormalizeEmail(email)
	if err := validateEmail(email, op); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError(op, "name", "is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, domain.NewValidationError(op, "password", err.Error())
		}
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	user, err := s.store.CreateUser(ctx, repository.CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	})
	if err != nil {
		return nil, writeErr(err, ErrEmailTaken, op)
	}

	s.metrics.Signup()
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming burns one bcrypt comparison so unknown emails cost the
// same as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("not-a-real-password")
	})
	_ = auth.VerifyPassword(password, dummyHash)
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	const op = "user.login"

	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			equalizeTiming(password)
			s.metrics.Login(false)
			return nil, nil, domain.WithOp(ErrInvalidCredentials, op)
		}
		return nil, nil, domain.Internal(err, op, "failed to load user")
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		s.metrics.Login(false)
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, nil, domain.WithOp(ErrInvalidCredentials, op)
		}
		return nil, nil, domain.Internal(err, op, "failed to verify password")
	}

	token, err := auth.NewToken()
	if err != nil {
		return nil, nil, domain.Internal(err, op, "failed to create session token")
	}

	now := s.now()
	session := domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, domain.Internal(err, op, "failed to create session")
	}

	s.metrics.Login(true)
	return user, &session, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil && !repository.IsNotFound(err) {
		return domain.Internal(err, "user.logout", "failed to delete session")
	}
	return nil
}

func (s *userService) GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.session"

	if token == "" {
		return nil, domain.Unauthorized(op, "Authentication required")
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Unauthorized(op, "Authentication required")
		}
		return nil, domain.Internal(err, op, "failed to load session")
	}
	if session.Expired(s.now()) {
		return nil, domain.WithOp(ErrSessionExpired, op)
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Unauthorized(op, "Authentication required")
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound, "user.get")
	}
	return user, nil
}
