package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// FederatedIdentity is what an external provider asserts about the signed-in person.
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Exchanger runs the provider side of the authorization-code flow.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*FederatedIdentity, error)
}

// OIDCConfig configures an OpenID Connect issuer.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCExchanger implements Exchanger against a discovered OpenID Connect issuer.
type OIDCExchanger struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCExchanger discovers the issuer and prepares the OAuth2 client.
func NewOIDCExchanger(ctx context.Context, cfg OIDCConfig) (*OIDCExchanger, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("OIDC issuer and client ID are required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	return &OIDCExchanger{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL returns the provider's consent URL for state.
func (e *OIDCExchanger) AuthCodeURL(state string) string {
	return e.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the code for tokens and verifies the ID token.
func (e *OIDCExchanger) Exchange(ctx context.Context, code string) (*FederatedIdentity, error) {
	token, err := e.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in response")
	}
	idToken, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &FederatedIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// OIDCProvider signs people in through an external identity provider, provisioning a
// password-less identity on first sign-in.
type OIDCProvider struct {
	exchanger   Exchanger
	users       UserStore
	defaultRole models.Role
	logger      *zap.Logger
}

// NewOIDCProvider creates a federated provider. defaultRole must be assignable.
func NewOIDCProvider(exchanger Exchanger, users UserStore, defaultRole models.Role, logger *zap.Logger) (*OIDCProvider, error) {
	if !defaultRole.Assignable() {
		return nil, fmt.Errorf("role %q cannot be assigned to federated users", defaultRole)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OIDCProvider{exchanger: exchanger, users: users, defaultRole: defaultRole, logger: logger}, nil
}

// Name returns the provider name.
func (p *OIDCProvider) Name() string { return "oidc" }

// LoginURL returns where to send the browser to start sign-in.
func (p *OIDCProvider) LoginURL(state string) string {
	return p.exchanger.AuthCodeURL(state)
}

// Authenticate resolves an authorization code to a stored identity.
func (p *OIDCProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Code == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := p.exchanger.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	email := NormalizeEmail(ident.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: no email asserted", ErrProviderFailure)
	}

	u, err := p.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// An unverified assertion must not take over an existing account.
		if !ident.EmailVerified {
			return nil, ErrInvalidCredentials
		}
		return u, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	u = &models.User{Email: email, Role: p.defaultRole, EmailVerified: ident.EmailVerified}
	if err := p.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) && ident.EmailVerified {
			return p.users.GetByEmail(ctx, email)
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}
	p.logger.Info("federated user provisioned", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}
