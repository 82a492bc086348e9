package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
	"github.com/aura-events/backend/pkg/response"
)

const minPasswordLen = 6

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"` // optional, defaults to EVENT_OWNER
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned by every successful sign-in.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// SessionView is the body of GET /auth/session.
type SessionView struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Role          models.Role `json:"role"`
	EmailVerified bool        `json:"emailVerified"`
}

// Handler handles /auth endpoints.
type Handler struct {
	users       UserStore
	hasher      *password.Hasher
	passwords   *PasswordProvider
	jwt         *JWTService
	cookie      Cookie
	federated   *OIDCProvider
	states      *StateStore
	revocations *Revocations
	logger      *zap.Logger
}

// NewHandler creates an auth handler. Federated sign-in and logout revocation are
// enabled separately with SetFederated and SetRevocations.
func NewHandler(users UserStore, hasher *password.Hasher, jwt *JWTService, cookie Cookie, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		users:     users,
		hasher:    hasher,
		passwords: NewPasswordProvider(users, hasher),
		jwt:       jwt,
		cookie:    cookie,
		logger:    logger,
	}
}

// SetFederated enables OIDC sign-in.
func (h *Handler) SetFederated(p *OIDCProvider, states *StateStore) {
	h.federated = p
	h.states = states
}

// SetRevocations enables server-side revocation on logout.
func (h *Handler) SetRevocations(r *Revocations) {
	h.revocations = r
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "A valid email and a password are required.")
		return
	}
	if len(req.Password) < minPasswordLen {
		response.BadRequest(c, "Password must be at least 6 characters.")
		return
	}
	role := models.RoleEventOwner
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	if !role.Assignable() {
		response.BadRequest(c, "Invalid role provided.")
		return
	}

	ctx := c.Request.Context()
	email := NormalizeEmail(req.Email)
	_, err := h.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		response.Conflict(c, "User with this email already exists")
		return
	case !errors.Is(err, database.ErrNotFound):
		h.logger.Error("signup lookup failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	u := &models.User{Email: email, PasswordHash: hash, Role: role}
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			response.Conflict(c, "User with this email already exists")
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	h.logger.Info("user signed up", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	response.Created(c, gin.H{"message": "User created successfully", "user": u.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required.")
		return
	}
	u, err := h.passwords.Authenticate(c.Request.Context(), Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.authFailed(c, err)
		return
	}
	h.issue(c, u)
}

// Logout handles POST /auth/logout. It succeeds without a session.
func (h *Handler) Logout(c *gin.Context) {
	if claims := ClaimsFromContext(c); claims != nil && h.revocations != nil {
		if err := h.revocations.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("revoke session failed", zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
	}
	h.cookie.Clear(c)
	response.OK(c, gin.H{"message": "Logged out"})
}

// Session handles GET /auth/session.
func (h *Handler) Session(c *gin.Context) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	response.OK(c, gin.H{"session": SessionView{
		ID:            claims.UserID.String(),
		Email:         claims.Email,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
	}})
}

// OIDCLogin handles GET /auth/oidc/login by redirecting to the identity provider.
func (h *Handler) OIDCLogin(c *gin.Context) {
	if h.federated == nil || h.states == nil {
		response.NotFound(c, "Federated sign-in is not configured")
		return
	}
	state, err := h.states.Issue(c.Request.Context())
	if err != nil {
		h.logger.Error("issue oauth state failed", zap.Error(err))
		response.Internal(c, "Authentication provider error")
		return
	}
	c.Redirect(http.StatusFound, h.federated.LoginURL(state))
}

// OIDCCallback handles GET /auth/oidc/callback.
func (h *Handler) OIDCCallback(c *gin.Context) {
	if h.federated == nil || h.states == nil {
		response.NotFound(c, "Federated sign-in is not configured")
		return
	}
	ctx := c.Request.Context()
	ok, err := h.states.Consume(ctx, c.Query("state"))
	if err != nil {
		h.logger.Error("consume oauth state failed", zap.Error(err))
		response.Internal(c, "Authentication provider error")
		return
	}
	if !ok {
		response.BadRequest(c, "Invalid or expired state")
		return
	}
	if c.Query("error") != "" {
		response.Unauthorized(c, "Invalid credentials.")
		return
	}
	u, err := h.federated.Authenticate(ctx, Credentials{Code: c.Query("code")})
	if err != nil {
		h.authFailed(c, err)
		return
	}
	h.issue(c, u)
}

func (h *Handler) authFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(c, "Invalid credentials.")
	case errors.Is(err, ErrProviderFailure):
		h.logger.Error("auth provider failed", zap.Error(err))
		response.Internal(c, "Authentication provider error")
	default:
		h.logger.Error("authentication failed", zap.Error(err))
		response.Internal(c, "Internal server error")
	}
}

func (h *Handler) issue(c *gin.Context, u *models.User) {
	token, claims, err := h.jwt.Generate(u)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	h.cookie.Set(c, token, claims.ExpiresAt.Time)
	response.OK(c, TokenResponse{Token: token, User: u.ToPublic()})
}
