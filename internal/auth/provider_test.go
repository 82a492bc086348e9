package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/password"
)

func testHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func seedUser(t *testing.T, users *memUsers, h *password.Hasher, email, plain string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Role: role}
	if plain != "" {
		hash, err := h.Hash(plain)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestPasswordProvider_Authenticate(t *testing.T) {
	ctx := context.Background()
	h := testHasher(t)
	users := newMemUsers()
	u := seedUser(t, users, h, "a@x.com", "secret1", models.RoleEventOwner)
	seedUser(t, users, h, "fed@x.com", "", models.RoleEventOwner)
	p := NewPasswordProvider(users, h)

	got, err := p.Authenticate(ctx, Credentials{Email: " A@X.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	for name, creds := range map[string]Credentials{
		"wrong password": {Email: "a@x.com", Password: "nope"},
		"unknown email":  {Email: "b@x.com", Password: "secret1"},
		"federated only": {Email: "fed@x.com", Password: "secret1"},
		"empty":          {},
	} {
		_, err := p.Authenticate(ctx, creds)
		assert.ErrorIs(t, err, ErrInvalidCredentials, name)
	}

	users.failing = errors.New("db down")
	_, err = p.Authenticate(ctx, Credentials{Email: "a@x.com", Password: "secret1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

type fakeExchanger struct {
	ident *FederatedIdentity
	err   error
}

func (f *fakeExchanger) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*FederatedIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ident, nil
}

func TestOIDCProvider_ProvisionsOnFirstSignIn(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	ex := &fakeExchanger{ident: &FederatedIdentity{Subject: "123", Email: "New@x.com", EmailVerified: true}}
	p, err := NewOIDCProvider(ex, users, models.RoleEventOwner, zap.NewNop())
	require.NoError(t, err)

	u, err := p.Authenticate(ctx, Credentials{Code: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", u.Email)
	assert.Equal(t, models.RoleEventOwner, u.Role)
	assert.True(t, u.EmailVerified)
	assert.Empty(t, u.PasswordHash)

	again, err := p.Authenticate(ctx, Credentials{Code: "def"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestOIDCProvider_Failures(t *testing.T) {
	ctx := context.Background()
	h := testHasher(t)
	users := newMemUsers()
	seedUser(t, users, h, "a@x.com", "secret1", models.RoleAdmin)

	ex := &fakeExchanger{err: errors.New("token endpoint 500")}
	p, err := NewOIDCProvider(ex, users, models.RoleStaff, nil)
	require.NoError(t, err)

	_, err = p.Authenticate(ctx, Credentials{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.Authenticate(ctx, Credentials{Code: "abc"})
	assert.ErrorIs(t, err, ErrProviderFailure)

	ex.err = nil
	ex.ident = &FederatedIdentity{Subject: "1"}
	_, err = p.Authenticate(ctx, Credentials{Code: "abc"})
	assert.ErrorIs(t, err, ErrProviderFailure)

	ex.ident = &FederatedIdentity{Subject: "1", Email: "a@x.com", EmailVerified: false}
	_, err = p.Authenticate(ctx, Credentials{Code: "abc"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unverified email must not claim an existing account")
}

func TestNewOIDCProvider_RejectsAdminDefault(t *testing.T) {
	_, err := NewOIDCProvider(&fakeExchanger{}, newMemUsers(), models.RoleAdmin, nil)
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	h := testHasher(t)
	users := newMemUsers()

	require.NoError(t, EnsureAdmin(ctx, users, h, "Root@x.com", "rootpass", zap.NewNop()))
	u, err := users.GetByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, h.Verify("rootpass", u.PasswordHash))

	require.NoError(t, EnsureAdmin(ctx, users, h, "root@x.com", "different", zap.NewNop()))
	again, err := users.GetByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, again.PasswordHash)

	assert.Error(t, EnsureAdmin(ctx, users, h, "", "x", zap.NewNop()))
}
