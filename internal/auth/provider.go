package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
)

var (
	// ErrInvalidCredentials covers every credential failure, including unknown email,
	// so callers cannot distinguish which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderFailure wraps failures of an external identity provider.
	ErrProviderFailure = errors.New("auth provider error")
)

// UserStore is the credential store the providers resolve identities against.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// Credentials is what a caller presents to a Provider. Password providers read Email
// and Password; federated providers read Code.
type Credentials struct {
	Email    string
	Password string
	Code     string
}

// Provider verifies credentials and resolves them to a stored identity.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}

// NormalizeEmail trims and lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordProvider checks email and password against the credential store.
type PasswordProvider struct {
	users  UserStore
	hasher *password.Hasher
}

// NewPasswordProvider creates a password provider.
func NewPasswordProvider(users UserStore, hasher *password.Hasher) *PasswordProvider {
	return &PasswordProvider{users: users, hasher: hasher}
}

// Name returns the provider name.
func (p *PasswordProvider) Name() string { return "password" }

// Authenticate returns the user whose stored digest matches the password.
func (p *PasswordProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := p.users.GetByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		p.hasher.Burn(creds.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.PasswordHash == "" {
		// federated-only account
		p.hasher.Burn(creds.Password)
		return nil, ErrInvalidCredentials
	}
	if !p.hasher.Verify(creds.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
