package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/authz"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/response"
)

// Store is the persistence the event handler needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, ownerID *uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Location         string         `json:"location"`
	Date             string         `json:"date"`
	AdditionalFields json.RawMessage `json:"additionalFields"`
}

// UpdateRequest is the body for PUT /events/:id. Absent fields are left unchanged;
// an explicit null additionalFields clears the list.
type UpdateRequest struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	Location         *string         `json:"location"`
	Date             *string         `json:"date"`
	AdditionalFields json.RawMessage `json:"additionalFields"`
}

// Accepted date layouts, including what an HTML datetime-local input submits.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// Handler handles event endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindEvent, authz.ActionCreate)) {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Missing required fields")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" || req.Location == "" || strings.TrimSpace(req.Date) == "" {
		response.BadRequest(c, "Missing required fields")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return
	}
	fields, err := normalizeFields(req.AdditionalFields)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	e := &models.Event{
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		Date:             date,
		OwnerID:          actor.ID,
		AdditionalFields: fields,
	}
	if err := createWithUniqueSlug(c.Request.Context(), h.store, e); err != nil {
		switch {
		case errors.Is(err, database.ErrForeignKey):
			response.Unauthorized(c, "User not found")
		case errors.Is(err, ErrSlugExhausted):
			response.Conflict(c, "Could not allocate a public slug")
		default:
			h.logger.Error("create event", zap.Error(err))
			response.Internal(c, "Internal server error")
		}
		return
	}
	h.logger.Info("event created",
		zap.String("event_id", e.ID.String()),
		zap.String("slug", e.PublicSlug),
		zap.String("owner_id", e.OwnerID.String()),
	)
	response.Created(c, gin.H{"event": e})
}

// List handles GET /events with an optional ownerId filter.
func (h *Handler) List(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindEvent, authz.ActionList)) {
		return
	}
	var owner *uuid.UUID
	if raw := c.Query("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid ownerId")
			return
		}
		owner = &id
	}
	h.list(c, owner)
}

// Mine handles GET /my-events.
func (h *Handler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if actor == nil {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	h.list(c, &actor.ID)
}

func (h *Handler) list(c *gin.Context, owner *uuid.UUID) {
	list, err := h.store.List(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, gin.H{"events": list})
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	if !middleware.Allow(c, authz.Precheck(middleware.CurrentActor(c), authz.KindEvent, authz.ActionRead)) {
		return
	}
	e, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"event": e})
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindEvent, authz.ActionUpdate)) {
		return
	}
	e, ok := h.load(c)
	if !ok {
		return
	}
	if !middleware.Allow(c, authz.Decide(actor, authz.ActionUpdate, authz.Event(e))) {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			response.BadRequest(c, "Missing required fields")
			return
		}
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Location != nil {
		if strings.TrimSpace(*req.Location) == "" {
			response.BadRequest(c, "Missing required fields")
			return
		}
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			response.BadRequest(c, "invalid date")
			return
		}
		e.Date = date
	}
	if req.AdditionalFields != nil {
		fields, err := normalizeFields(req.AdditionalFields)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		e.AdditionalFields = fields
	}

	if err := h.store.Update(c.Request.Context(), e); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "Event not found")
			return
		}
		h.logger.Error("update event", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, gin.H{"event": e})
}

// Delete handles DELETE /events/:id. RSVPs of the event are removed with it.
func (h *Handler) Delete(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	if !middleware.Allow(c, authz.Precheck(actor, authz.KindEvent, authz.ActionDelete)) {
		return
	}
	e, ok := h.load(c)
	if !ok {
		return
	}
	if !middleware.Allow(c, authz.Decide(actor, authz.ActionDelete, authz.Event(e))) {
		return
	}
	if err := h.store.Delete(c.Request.Context(), e.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "Event not found")
			return
		}
		h.logger.Error("delete event", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	h.logger.Info("event deleted", zap.String("event_id", e.ID.String()), zap.String("actor_id", actor.ID.String()))
	response.OK(c, gin.H{"message": "Event deleted"})
}

// load fetches the event named by the :id path parameter, writing 400 or 404 itself.
func (h *Handler) load(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "Event not found")
			return nil, false
		}
		h.logger.Error("get event", zap.String("event_id", id.String()), zap.Error(err))
		response.Internal(c, "Internal server error")
		return nil, false
	}
	return e, true
}
