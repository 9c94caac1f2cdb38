package repository

import (
	"context"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
)

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         domain.Role
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*domain.User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role)
		VALUES (lower($1), $2, $3, $4)
		RETURNING `+userColumns,
		arg.Email, arg.Name, arg.PasswordHash, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (q *Queries) SetUserRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	return expectOne(q.db.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role))
}

func (q *Queries) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)`,
		s.Token, s.UserID, s.ExpiresAt)
	return err
}

func (q *Queries) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := q.db.QueryRow(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM sessions WHERE token = $1`, token).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
