package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
)

// EnsureAdmin creates the bootstrap ADMIN identity if no user holds email yet.
// An existing user is left untouched.
func EnsureAdmin(ctx context.Context, users UserStore, hasher *password.Hasher, email, plain string, logger *zap.Logger) error {
	email = NormalizeEmail(email)
	if email == "" || plain == "" {
		return fmt.Errorf("admin email and password are required")
	}
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			logger.Warn("bootstrap admin email belongs to a non-admin user", zap.String("user_id", existing.ID.String()))
		}
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	u := &models.User{Email: email, PasswordHash: hash, Role: models.RoleAdmin, EmailVerified: true}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrap admin created", zap.String("user_id", u.ID.String()))
	return nil
}
