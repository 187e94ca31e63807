package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, actor_id, actor_email, actor_name, action_type, target_collection, target_entity_id,
	prior_values, new_values, affected_count, details, origin_address, created_at`

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Insert appends one ledger entry. Entries carry client-generated ids, so a
// replayed entry that already landed is ignored.
func (r *AuditRepo) Insert(ctx context.Context, e models.AuditLog) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_email, actor_name, action_type, target_collection, target_entity_id,
			prior_values, new_values, affected_count, details, origin_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.ActorID, e.ActorEmail, e.ActorName, e.ActionType, e.TargetCollection, e.TargetEntityID,
		e.PriorValues, e.NewValues, e.AffectedCount, e.Details, e.OriginAddress, e.CreatedAt)
	if err != nil {
		return translate("insert audit entry", err, "audit entry")
	}
	return nil
}

// Query returns entries matching f, newest first, plus the total match count.
func (r *AuditRepo) Query(ctx context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditLog, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ActionType != nil {
		add("action_type = $%d", *f.ActionType)
	}
	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.TargetCollection != nil {
		add("target_collection = $%d", *f.TargetCollection)
	}
	if f.TargetEntityID != nil {
		add("target_entity_id = $%d", *f.TargetEntityID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate("count audit entries", err, "audit entries")
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		auditColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, translate("query audit entries", err, "audit entries")
	}
	defer rows.Close()

	logs := make([]models.AuditLog, 0, limit)
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.ActorEmail, &l.ActorName, &l.ActionType, &l.TargetCollection,
			&l.TargetEntityID, &l.PriorValues, &l.NewValues, &l.AffectedCount, &l.Details, &l.OriginAddress, &l.CreatedAt); err != nil {
			return nil, 0, translate("scan audit entry", err, "audit entry")
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("query audit entries", err, "audit entries")
	}
	return logs, total, nil
}
