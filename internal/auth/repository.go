package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, COALESCE(password_hash, ''), role, email_verified, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns every non-admin user.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, role FROM users WHERE role <> $1 ORDER BY email`, string(models.RoleAdmin))
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.Role); err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, u)
	}
	return list, database.Translate(rows.Err())
}

// Create inserts u and fills in its ID and timestamps. A taken email yields
// database.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, password_hash, role, email_verified)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.Email, u.PasswordHash, string(u.Role), u.EmailVerified).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return database.Translate(err)
}

// Update writes email, role and password hash for u.ID.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET email = $1, role = $2, password_hash = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.Email, string(u.Role), u.PasswordHash, u.ID).Scan(&u.UpdatedAt)
	return database.Translate(err)
}

// OwnsEvents reports whether any event is owned by id.
func (r *Repository) OwnsEvents(ctx context.Context, id uuid.UUID) (bool, error) {
	var owns bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE owner_id = $1)`, id).Scan(&owns)
	return owns, database.Translate(err)
}

// Delete removes a user. Users still owning events yield database.ErrForeignKey.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
