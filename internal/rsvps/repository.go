package rsvps

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles RSVP persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an RSVP repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an RSVP. An unknown event yields database.ErrForeignKey.
func (r *Repository) Create(ctx context.Context, rsvp *models.RSVP) error {
	const q = `INSERT INTO rsvps (name, email, event_id) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, rsvp.Name, rsvp.Email, rsvp.EventID).Scan(&rsvp.ID, &rsvp.CreatedAt)
	return database.Translate(err)
}

// ListByEvent returns an event's RSVPs, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RSVP, error) {
	const q = `SELECT id, name, email, event_id, created_at FROM rsvps WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()

	list := []models.RSVP{}
	for rows.Next() {
		var v models.RSVP
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.EventID, &v.CreatedAt); err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, v)
	}
	return list, database.Translate(rows.Err())
}

// Delete removes an RSVP and returns what was removed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	const q = `DELETE FROM rsvps WHERE id = $1 RETURNING id, name, email, event_id, created_at`
	var v models.RSVP
	if err := r.pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.Name, &v.Email, &v.EventID, &v.CreatedAt); err != nil {
		return nil, database.Translate(err)
	}
	return &v, nil
}
