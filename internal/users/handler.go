// Package users serves the admin-only user management endpoints.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/authz"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
	"github.com/aura-events/backend/pkg/response"
)

const minPasswordLen = 6

// Store is the user persistence the handler needs. *auth.Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	OwnsEvents(ctx context.Context, id uuid.UUID) (bool, error)
}

// Request is the body for POST /users and PUT /users/:id. On update an empty
// password keeps the stored one.
type Request struct {
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	Password string      `json:"password"`
}

// Handler handles /users.
type Handler struct {
	store  Store
	hasher *password.Hasher
	logger *zap.Logger
}

// NewHandler creates a user management handler.
func NewHandler(store Store, hasher *password.Hasher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, hasher: hasher, logger: logger}
}

// List handles GET /users. ADMIN identities are not listed.
func (h *Handler) List(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindUser, authz.ActionList)) {
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, gin.H{"users": list})
}

// Create handles POST /users.
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindUser, authz.ActionCreate)) {
		return
	}
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	if req.Password == "" {
		response.BadRequest(c, "Invalid input")
		return
	}
	if len(req.Password) < minPasswordLen {
		response.BadRequest(c, "Password must be at least 6 characters.")
		return
	}
	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	u := &models.User{Email: req.Email, Role: req.Role, PasswordHash: hash}
	if err := h.store.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			response.Conflict(c, "User already exists")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	h.logger.Info("user created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
		zap.String("actor_id", actor.ID.String()),
	)
	response.Created(c, gin.H{"user": u.ToPublic()})
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindUser, authz.ActionRead)) {
		return
	}
	u, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"user": u.ToPublic()})
}

// Update handles PUT /users/:id. Email and role are required. ADMIN users cannot
// be modified, and a user that owns events cannot become STAFF.
func (h *Handler) Update(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindUser, authz.ActionUpdate)) {
		return
	}
	u, ok := h.load(c)
	if !ok {
		return
	}
	if !middleware.Allow(c, authz.Decide(actor, authz.ActionUpdate, authz.User(u))) {
		return
	}
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	if req.Role != u.Role && req.Role == models.RoleStaff {
		owns, err := h.store.OwnsEvents(c.Request.Context(), u.ID)
		if err != nil {
			h.logger.Error("check event ownership", zap.String("user_id", u.ID.String()), zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
		if owns {
			response.Conflict(c, "User still owns events")
			return
		}
	}
	u.Email = req.Email
	u.Role = req.Role
	if strings.TrimSpace(req.Password) != "" {
		if len(req.Password) < minPasswordLen {
			response.BadRequest(c, "Password must be at least 6 characters.")
			return
		}
		hash, err := h.hasher.Hash(req.Password)
		if err != nil {
			h.logger.Error("hash password", zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
		u.PasswordHash = hash
	}

	if err := h.store.Update(c.Request.Context(), u); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			response.Conflict(c, "User already exists")
		case errors.Is(err, database.ErrNotFound):
			response.NotFound(c, "User not found")
		default:
			h.logger.Error("update user", zap.String("user_id", u.ID.String()), zap.Error(err))
			response.Internal(c, "Internal server error")
		}
		return
	}
	response.OK(c, gin.H{"user": u.ToPublic()})
}

// Delete handles DELETE /users/:id. ADMIN users cannot be deleted, and users that
// still own events are refused.
func (h *Handler) Delete(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindUser, authz.ActionDelete)) {
		return
	}
	u, ok := h.load(c)
	if !ok {
		return
	}
	if !middleware.Allow(c, authz.Decide(actor, authz.ActionDelete, authz.User(u))) {
		return
	}
	if err := h.store.Delete(c.Request.Context(), u.ID); err != nil {
		switch {
		case errors.Is(err, database.ErrForeignKey):
			response.Conflict(c, "User still owns events")
		case errors.Is(err, database.ErrNotFound):
			response.NotFound(c, "User not found")
		default:
			h.logger.Error("delete user", zap.String("user_id", u.ID.String()), zap.Error(err))
			response.Internal(c, "Internal server error")
		}
		return
	}
	h.logger.Info("user deleted", zap.String("user_id", u.ID.String()), zap.String("actor_id", actor.ID.String()))
	response.OK(c, gin.H{"message": "User deleted successfully"})
}

func bindRequest(c *gin.Context) (Request, bool) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid input")
		return req, false
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if req.Email == "" || !req.Role.Assignable() {
		response.BadRequest(c, "Invalid input")
		return req, false
	}
	return req, true
}

func (h *Handler) load(c *gin.Context) (*models.User, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return nil, false
	}
	u, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "User not found")
			return nil, false
		}
		h.logger.Error("get user", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return nil, false
	}
	return u, true
}
