// Package bootstrap handles one-time initialization tasks for the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/marketplace/internal/auth"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AdminConfig contains configuration for the initial admin user.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Validate checks that the admin configuration is valid.
func (c *AdminConfig) Validate() error {
	if c.Email == "" {
		return errors.New("admin email is required")
	}
	if c.Password == "" {
		return errors.New("admin password is required")
	}
	if len(c.Password) < auth.MinAdminPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", auth.MinAdminPasswordLength)
	}
	return nil
}

// UserStore is the persistence EnsureAdmin needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error)
	SetUserRole(ctx context.Context, id uuid.UUID, role domain.Role) error
}

// EnsureAdmin creates the admin account from cfg if it does not exist and
// promotes an existing customer account with that email. Safe to call on
// every startup. A nil or empty cfg is skipped with a warning.
func EnsureAdmin(ctx context.Context, store UserStore, cfg *AdminConfig, logger *slog.Logger) error {
	if cfg == nil || cfg.Email == "" || cfg.Password == "" {
		logger.Warn("bootstrap: skipping admin creation - MARKETPLACE_ADMIN_EMAIL or MARKETPLACE_ADMIN_PASSWORD not set",
			"hint", "Set these environment variables to create an admin user on first startup",
		)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid admin configuration: %w", err)
	}

	existing, err := store.GetUserByEmail(ctx, cfg.Email)
	if err == nil {
		if existing.Role == domain.RoleAdmin {
			logger.Info("bootstrap: admin user already exists", "email", cfg.Email)
			return nil
		}
		if err := store.SetUserRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("failed to promote existing user: %w", err)
		}
		logger.Info("bootstrap: promoted existing user to admin", "email", cfg.Email, "user_id", existing.ID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}

	passwordHash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	user, err := store.CreateUser(ctx, repository.CreateUserParams{
		Email:        cfg.Email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			logger.Info("bootstrap: admin user already exists (concurrent creation)", "email", cfg.Email)
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("bootstrap: admin user created successfully",
		"email", cfg.Email,
		"user_id", user.ID,
	)
	return nil
}
