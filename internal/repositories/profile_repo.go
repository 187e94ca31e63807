package repositories

import (
	"context"
	"fmt"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, full_name, role, created_at, updated_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate("get profile", err, fmt.Sprintf("profile %s", id))
	}
	p.Role = rbac.ParseRole(role)
	return &p, nil
}

// Upsert creates the profile on first sight and refreshes email and name
// afterwards. The stored role is never overwritten here.
func (r *ProfileRepo) Upsert(ctx context.Context, id uuid.UUID, email string, fullName *string) (*models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = COALESCE(EXCLUDED.full_name, profiles.full_name),
			updated_at = now()
		RETURNING id, email, full_name, role, created_at, updated_at
	`, id, email, fullName).Scan(&p.ID, &p.Email, &p.FullName, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate("upsert profile", err, "profile")
	}
	p.Role = rbac.ParseRole(role)
	return &p, nil
}

// SetRole changes the stored role of a profile.
func (r *ProfileRepo) SetRole(ctx context.Context, id uuid.UUID, role rbac.Role) error {
	if !role.Valid() {
		return apperr.Validation("role", "invalid role %q", role.String())
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1`, id, role.String())
	if err != nil {
		return translate("set profile role", err, "profile")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("profile %s", id)
	}
	return nil
}
