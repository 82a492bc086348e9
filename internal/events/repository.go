package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `e.id, e.title, COALESCE(e.description, ''), e.location, e.date, e.public_slug, e.owner_id,
	e.additional_fields, e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*models.Event, error) {
	var e models.Event
	dest := append([]any{&e.ID, &e.Title, &e.Description, &e.Location, &e.Date, &e.PublicSlug, &e.OwnerID,
		&e.AdditionalFields, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, database.Translate(err)
	}
	if len(e.AdditionalFields) == 0 {
		e.AdditionalFields = models.EmptyFields
	}
	return &e, nil
}

func fieldsOrEmpty(f json.RawMessage) json.RawMessage {
	if len(f) == 0 {
		return models.EmptyFields
	}
	return f
}

// Create inserts e with its PublicSlug as chosen by the caller. A taken slug yields
// database.ErrDuplicate; a missing owner yields database.ErrForeignKey.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, description, location, date, public_slug, owner_id, additional_fields)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	e.AdditionalFields = fieldsOrEmpty(e.AdditionalFields)
	err := r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Location, e.Date, e.PublicSlug, e.OwnerID, e.AdditionalFields).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return database.Translate(err)
}

// SlugExists reports whether slug is already used.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE public_slug = $1)`, slug).Scan(&exists)
	return exists, database.Translate(err)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
}

// List returns events ordered by date, each with its owner, optionally filtered by owner.
func (r *Repository) List(ctx context.Context, ownerID *uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + `, u.email, u.role FROM events e JOIN users u ON u.id = e.owner_id`
	var args []any
	if ownerID != nil {
		q += ` WHERE e.owner_id = $1`
		args = append(args, *ownerID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY e.date ASC`, args...)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		var owner models.UserPublic
		e, err := scanEvent(rows, &owner.Email, &owner.Role)
		if err != nil {
			return nil, err
		}
		owner.ID = e.OwnerID
		e.Owner = &owner
		list = append(list, *e)
	}
	return list, database.Translate(rows.Err())
}

// Update writes the mutable fields of e. Owner and slug are never changed here.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = NULLIF($2, ''), location = $3, date = $4,
		additional_fields = $5, updated_at = NOW()
		WHERE id = $6 RETURNING updated_at`
	e.AdditionalFields = fieldsOrEmpty(e.AdditionalFields)
	err := r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Location, e.Date, e.AdditionalFields, e.ID).Scan(&e.UpdatedAt)
	return database.Translate(err)
}

// Delete removes an event; its RSVPs go with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return database.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
