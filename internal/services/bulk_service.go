package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/events"
	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Bulk operations
const (
	BulkUpdateStatus = "update_status"
	BulkUpdateFields = "update_fields"
	BulkDelete       = "delete"
)

var AllBulkOperations = []string{BulkUpdateStatus, BulkUpdateFields, BulkDelete}

type BulkInput struct {
	ActorRole     rbac.Role
	Operation     string
	TargetIDs     []int64
	Payload       map[string]any
	Actor         models.Actor
	OriginAddress *string
}

type BulkResult struct {
	Operation      string  `json:"operation"`
	RequestedCount int     `json:"requested_count"`
	AffectedCount  int     `json:"affected_count"`
	AffectedIDs    []int64 `json:"affected_ids"`
}

// BulkService applies one operation to a set of products with a single
// statement and records one ledger entry per call. It does not go through
// the approval pipeline.
type BulkService struct {
	products  BatchProductStore
	ledger    *AuditLedger
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewBulkService(products BatchProductStore, ledger *AuditLedger, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) *BulkService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BulkService{products: products, ledger: ledger, publisher: publisher, metrics: m, log: log}
}

func (s *BulkService) ApplyBulk(ctx context.Context, in BulkInput) (res BulkResult, err error) {
	ctx, span := tracer.Start(ctx, "BulkService.ApplyBulk", trace.WithAttributes(
		attribute.String("operation", in.Operation),
		attribute.Int("requested", len(in.TargetIDs)),
	))
	defer func() { endSpan(span, err) }()

	if !rbac.HasPermission(in.ActorRole, rbac.RoleEditor) {
		return BulkResult{}, apperr.PermissionDenied("role %s cannot run bulk operations", in.ActorRole)
	}
	ids, err := uniqueIDs(in.TargetIDs)
	if err != nil {
		return BulkResult{}, err
	}

	var (
		affected []int64
		values   map[string]any
		action   string
		summary  string
	)
	switch in.Operation {
	case BulkUpdateStatus:
		values, err = statusPayload(in.Payload)
		if err != nil {
			return BulkResult{}, err
		}
		action = models.ActionBulkUpdate
		affected, err = s.products.UpdateMany(ctx, ids, values)
		summary = fmt.Sprintf("status to %s", values[models.FieldStatus])
	case BulkUpdateFields:
		values, err = fieldsPayload(in.Payload)
		if err != nil {
			return BulkResult{}, err
		}
		action = models.ActionBulkUpdate
		affected, err = s.products.UpdateMany(ctx, ids, values)
		summary = "fields: " + strings.Join(models.SortedFieldNames(values), ", ")
	case BulkDelete:
		action = models.ActionBulkDelete
		affected, err = s.products.DeleteMany(ctx, ids)
	default:
		return BulkResult{}, apperr.Validation("operation", "invalid operation %q, must be one of: %s", in.Operation, strings.Join(AllBulkOperations, ", "))
	}
	if err != nil {
		return BulkResult{}, err
	}

	details := fmt.Sprintf("bulk deleted %d of %d products", len(affected), len(ids))
	if action == models.ActionBulkUpdate {
		details = fmt.Sprintf("bulk updated %d of %d products %s", len(affected), len(ids), summary)
	}

	s.ledger.Record(ctx, AuditEntryInput{
		Actor:         in.Actor,
		ActionType:    action,
		NewValues:     values,
		AffectedCount: len(affected),
		Details:       details,
		OriginAddress: in.OriginAddress,
	})

	_ = s.publisher.Publish(ctx, events.StreamCatalog, events.Event{
		Type: events.EventBulkApplied,
		Payload: map[string]any{
			"operation":      in.Operation,
			"affected_count": len(affected),
			"requester_id":   in.Actor.ID.String(),
		},
	})

	s.metrics.AddBulkAffected(in.Operation, len(affected))
	s.log.Info("bulk operation applied",
		zap.String("operation", in.Operation),
		zap.Int("requested", len(ids)),
		zap.Int("affected", len(affected)),
		zap.String("actor_id", in.Actor.ID.String()),
	)

	if affected == nil {
		affected = []int64{}
	}
	return BulkResult{
		Operation:      in.Operation,
		RequestedCount: len(ids),
		AffectedCount:  len(affected),
		AffectedIDs:    affected,
	}, nil
}

func uniqueIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("target_ids", "at least one id is required")
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func statusPayload(payload map[string]any) (map[string]any, error) {
	st, ok := payload[models.FieldStatus]
	if !ok || len(payload) != 1 {
		return nil, apperr.Validation(models.FieldStatus, "update_status takes exactly one field: status")
	}
	return models.NormalizeProductValues(map[string]any{models.FieldStatus: st})
}

func fieldsPayload(payload map[string]any) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, apperr.Validation("payload", "no fields to update")
	}
	if _, ok := payload[models.FieldProductCode]; ok {
		return nil, apperr.Validation(models.FieldProductCode, "product codes are unique and cannot be bulk-updated")
	}
	return models.NormalizeProductValues(payload)
}
