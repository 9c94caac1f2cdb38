package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/auth"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

func TestUserService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes email and hashes password", func(t *testing.T) {
		var got repository.CreateUserParams
		store := &mockStore{
			CreateUserFunc: func(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error) {
				got = arg
				return &domain.User{ID: uuid.New(), Email: arg.Email, Name: arg.Name, Role: arg.Role}, nil
			},
		}
		svc := NewUserService(store, time.Hour, nil)

		u, err := svc.Signup(ctx, "  Ana@Example.COM ", " Ana ", "correct horse")
		require.NoError(t, err)

		assert.Equal(t, "ana@example.com", got.Email)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, domain.RoleCustomer, got.Role)
		assert.NotEqual(t, "correct horse", got.PasswordHash)
		assert.NoError(t, auth.VerifyPassword("correct horse", got.PasswordHash))
		assert.Equal(t, "ana@example.com", u.Email)
	})

	tests := []struct {
		name     string
		email    string
		userName string
		password string
		field    string
	}{
		{name: "invalid email", email: "not-an-email", userName: "Ana", password: "long enough", field: "email"},
		{name: "missing name", email: "ana@example.com", userName: " ", password: "long enough", field: "name"},
		{name: "short password", email: "ana@example.com", userName: "Ana", password: "short", field: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(&mockStore{}, time.Hour, nil)
			_, err := svc.Signup(ctx, tt.email, tt.userName, tt.password)
			require.Error(t, err)
			assert.Contains(t, domain.GetValidationFields(err), tt.field)
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		store := &mockStore{
			CreateUserFunc: func(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error) {
				return nil, &pgconn.PgError{Code: "23505"}
			},
		}
		svc := NewUserService(store, time.Hour, nil)
		_, err := svc.Signup(ctx, "ana@example.com", "Ana", "long enough")
		assert.ErrorIs(t, err, ErrEmailTaken)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	user := &domain.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: hash}

	newStore := func(sessions *[]domain.Session) *mockStore {
		return &mockStore{
			GetUserByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
				if email == user.Email {
					return user, nil
				}
				return nil, pgx.ErrNoRows
			},
			CreateSessionFunc: func(ctx context.Context, s domain.Session) error {
				*sessions = append(*sessions, s)
				return nil
			},
		}
	}

	t.Run("creates a session", func(t *testing.T) {
		var sessions []domain.Session
		svc := NewUserService(newStore(&sessions), 24*time.Hour, nil)

		u, session, err := svc.Login(ctx, "ANA@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, user.ID, u.ID)
		require.Len(t, sessions, 1)
		assert.Equal(t, session.Token, sessions[0].Token)
		assert.Equal(t, user.ID, session.UserID)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		var sessions []domain.Session
		svc := NewUserService(newStore(&sessions), time.Hour, nil)

		_, _, errPassword := svc.Login(ctx, "ana@example.com", "wrong password")
		_, _, errEmail := svc.Login(ctx, "bob@example.com", "correct horse")

		assert.ErrorIs(t, errPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, errEmail, ErrInvalidCredentials)
		assert.Equal(t, domain.ErrorMessage(errPassword), domain.ErrorMessage(errEmail))
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(errEmail))
		assert.Empty(t, sessions)
	})
}

func TestUserService_GetUserBySessionToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	user := &domain.User{ID: uuid.New(), Email: "ana@example.com"}

	store := &mockStore{
		GetSessionFunc: func(ctx context.Context, token string) (*domain.Session, error) {
			switch token {
			case "live":
				return &domain.Session{Token: token, UserID: user.ID, ExpiresAt: now.Add(time.Hour)}, nil
			case "stale":
				return &domain.Session{Token: token, UserID: user.ID, ExpiresAt: now.Add(-time.Hour)}, nil
			}
			return nil, pgx.ErrNoRows
		},
		GetUserByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			return user, nil
		},
	}
	svc := NewUserService(store, time.Hour, nil).(*userService)
	svc.now = func() time.Time { return now }

	u, err := svc.GetUserBySessionToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, user.ID, u.ID)

	_, err = svc.GetUserBySessionToken(ctx, "stale")
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = svc.GetUserBySessionToken(ctx, "unknown")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	_, err = svc.GetUserBySessionToken(ctx, "")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestUserService_Logout(t *testing.T) {
	var deleted []string
	store := &mockStore{
		DeleteSessionFunc: func(ctx context.Context, token string) error {
			deleted = append(deleted, token)
			return pgx.ErrNoRows
		},
	}
	svc := NewUserService(store, time.Hour, nil)

	assert.NoError(t, svc.Logout(context.Background(), "abc"), "missing sessions are not an error")
	assert.NoError(t, svc.Logout(context.Background(), ""))
	assert.Equal(t, []string{"abc"}, deleted)
}
