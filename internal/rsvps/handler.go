package rsvps

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
	"github.com/aura-events/backend/pkg/response"
)

// Store is the persistence the RSVP handler needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, rsvp *models.RSVP) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RSVP, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.RSVP, error)
}

// CreateRequest is the body for POST /rsvp.
type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	EventID string `json:"eventId"`
}

// Handler handles /rsvp.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an RSVP handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Create handles POST /rsvp. No session is required.
func (h *Handler) Create(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindRSVP, authz.ActionCreate)) {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Missing required fields")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = auth.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.EventID == "" {
		response.BadRequest(c, "Missing required fields")
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid eventId")
		return
	}

	rsvp := &models.RSVP{Name: req.Name, Email: req.Email, EventID: eventID}
	if err := h.store.Create(c.Request.Context(), rsvp); err != nil {
		if errors.Is(err, database.ErrForeignKey) {
			response.NotFound(c, "Event not found")
			return
		}
		h.logger.Error("create rsvp", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	h.logger.Info("rsvp created", zap.String("rsvp_id", rsvp.ID.String()), zap.String("event_id", eventID.String()))
	response.Created(c, gin.H{"rsvp": rsvp})
}

// List handles GET /rsvp?id=<eventId>.
func (h *Handler) List(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindRSVP, authz.ActionList)) {
		return
	}
	raw := c.Query("id")
	if raw == "" {
		response.BadRequest(c, "Missing eventId")
		return
	}
	eventID, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid eventId")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list rsvps", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, gin.H{"rsvps": list})
}

// Delete handles DELETE /rsvp?id=<rsvpId>.
func (h *Handler) Delete(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindRSVP, authz.ActionDelete)) {
		return
	}
	raw := c.Query("id")
	if raw == "" {
		response.BadRequest(c, "RSVP ID is required")
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid RSVP id")
		return
	}
	rsvp, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "RSVP not found")
			return
		}
		h.logger.Error("delete rsvp", zap.String("rsvp_id", id.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, gin.H{"message": "RSVP deleted", "rsvp": rsvp})
}
