package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const changeRequestColumns = `id, target_collection, target_entity_id, change_type, proposed_values, prior_values,
	description, requester_id, requester_email, requester_name, status,
	reviewer_id, reviewer_email, reviewer_name, review_notes, created_at, reviewed_at`

// ChangeRequestFilter narrows List. Zero values are ignored.
type ChangeRequestFilter struct {
	Status      string
	RequesterID *uuid.UUID
	Limit       int
	Offset      int
}

type ChangeRequestRepo struct {
	pool *pgxpool.Pool
}

func NewChangeRequestRepo(pool *pgxpool.Pool) *ChangeRequestRepo {
	return &ChangeRequestRepo{pool: pool}
}

func scanChangeRequest(row pgx.Row) (*models.ChangeRequest, error) {
	var cr models.ChangeRequest
	err := row.Scan(&cr.ID, &cr.TargetCollection, &cr.TargetEntityID, &cr.ChangeType, &cr.ProposedValues, &cr.PriorValues,
		&cr.Description, &cr.RequesterID, &cr.RequesterEmail, &cr.RequesterName, &cr.Status,
		&cr.ReviewerID, &cr.ReviewerEmail, &cr.ReviewerName, &cr.ReviewNotes, &cr.CreatedAt, &cr.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// Create stores a new pending request. ID, status and timestamps are assigned
// by the database.
func (r *ChangeRequestRepo) Create(ctx context.Context, cr *models.ChangeRequest) (*models.ChangeRequest, error) {
	proposed := cr.ProposedValues
	if proposed == nil {
		proposed = map[string]any{}
	}
	out, err := scanChangeRequest(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO change_requests (target_collection, target_entity_id, change_type, proposed_values, prior_values,
			description, requester_id, requester_email, requester_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+changeRequestColumns,
		cr.TargetCollection, cr.TargetEntityID, cr.ChangeType, proposed, cr.PriorValues,
		cr.Description, cr.RequesterID, cr.RequesterEmail, cr.RequesterName,
	))
	if err != nil {
		return nil, translate("insert change request", err, "change request")
	}
	return out, nil
}

func (r *ChangeRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	cr, err := scanChangeRequest(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get change request", err, fmt.Sprintf("change request %s", id))
	}
	return cr, nil
}

// TransitionFromPending moves a pending request to status and stamps the
// reviewer. The status guard makes the update a compare-and-swap: a request
// that is missing or no longer pending yields a not-found error and is left
// untouched.
func (r *ChangeRequestRepo) TransitionFromPending(ctx context.Context, id uuid.UUID, status string, reviewer models.Actor, notes *string) (*models.ChangeRequest, error) {
	cr, err := scanChangeRequest(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE change_requests
		SET status = $2, reviewer_id = $3, reviewer_email = $4, reviewer_name = $5,
			review_notes = $6, reviewed_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+changeRequestColumns,
		id, status, reviewer.ID, reviewer.Email, reviewer.Name, notes,
	))
	if err != nil {
		return nil, translate("review change request", err, fmt.Sprintf("pending change request %s", id))
	}
	return cr, nil
}

// List returns one page of requests, newest first, plus the total number of
// rows matching the filter.
func (r *ChangeRequestRepo) List(ctx context.Context, f ChangeRequestFilter) ([]models.ChangeRequest, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.RequesterID != nil {
		args = append(args, *f.RequesterID)
		where = append(where, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM change_requests`+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate("count change requests", err, "change requests")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM change_requests%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		changeRequestColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, translate("list change requests", err, "change requests")
	}
	defer rows.Close()

	list := make([]models.ChangeRequest, 0, limit)
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, 0, translate("scan change request", err, "change request")
		}
		list = append(list, *cr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("list change requests", err, "change requests")
	}
	return list, total, nil
}

// CountByStatus returns the number of requests in status, or in every status
// when status is empty.
func (r *ChangeRequestRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	var err error
	if status == "" {
		err = db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM change_requests`).Scan(&n)
	} else {
		err = db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM change_requests WHERE status = $1`, status).Scan(&n)
	}
	if err != nil {
		return 0, translate("count change requests", err, "change requests")
	}
	return n, nil
}
