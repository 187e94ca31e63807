package services

import (
	"context"
	"fmt"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"go.uber.org/zap"
)

const MaxImportRows = 5000

type ImportInput struct {
	ActorRole     rbac.Role
	Rows          []map[string]any
	Actor         models.Actor
	OriginAddress *string
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	TotalRows    int              `json:"total_rows"`
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []ImportRowError `json:"errors"`
	ProductIDs   []int64          `json:"product_ids"`
}

// ImportService inserts pre-parsed product rows. Invalid rows are reported
// and skipped; valid rows are inserted together.
type ImportService struct {
	products BatchProductStore
	ledger   *AuditLedger
	tx       db.Transactor
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewImportService(products BatchProductStore, ledger *AuditLedger, tx db.Transactor, m *metrics.Metrics, log *zap.Logger) *ImportService {
	return &ImportService{products: products, ledger: ledger, tx: tx, metrics: m, log: log}
}

func (s *ImportService) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	if !rbac.HasPermission(in.ActorRole, rbac.RoleEditor) {
		return ImportResult{}, apperr.PermissionDenied("role %s cannot import products", in.ActorRole)
	}
	if len(in.Rows) == 0 {
		return ImportResult{}, apperr.Validation("rows", "no rows to import")
	}
	if len(in.Rows) > MaxImportRows {
		return ImportResult{}, apperr.Validation("rows", "at most %d rows per import, got %d", MaxImportRows, len(in.Rows))
	}

	res := ImportResult{TotalRows: len(in.Rows), Errors: []ImportRowError{}}
	valid := make([]map[string]any, 0, len(in.Rows))
	codes := make(map[string]int, len(in.Rows))

	for i, row := range in.Rows {
		n := i + 1
		vals, err := prepareCreate(row)
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: n, Message: err.Error()})
			continue
		}
		code, _ := vals[models.FieldProductCode].(string)
		if first, dup := codes[code]; dup {
			res.Errors = append(res.Errors, ImportRowError{Row: n, Message: fmt.Sprintf("duplicate product_code %q, first seen in row %d", code, first)})
			continue
		}
		codes[code] = n
		valid = append(valid, vals)
	}

	if len(valid) > 0 {
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			ids, err := s.products.InsertMany(ctx, valid)
			if err != nil {
				return err
			}
			res.ProductIDs = ids
			return nil
		})
		if err != nil {
			return ImportResult{}, err
		}
	}
	if res.ProductIDs == nil {
		res.ProductIDs = []int64{}
	}
	res.SuccessCount = len(res.ProductIDs)
	res.ErrorCount = len(res.Errors)

	s.ledger.Record(ctx, AuditEntryInput{
		Actor:         in.Actor,
		ActionType:    models.ActionImport,
		NewValues:     map[string]any{"success_count": res.SuccessCount, "error_count": res.ErrorCount},
		AffectedCount: res.SuccessCount,
		Details:       fmt.Sprintf("imported %d of %d rows, %d failed", res.SuccessCount, res.TotalRows, res.ErrorCount),
		OriginAddress: in.OriginAddress,
	})

	s.metrics.AddImported(res.SuccessCount, res.ErrorCount)
	s.log.Info("products imported",
		zap.Int("total", res.TotalRows),
		zap.Int("succeeded", res.SuccessCount),
		zap.Int("failed", res.ErrorCount),
		zap.String("actor_id", in.Actor.ID.String()),
	)
	return res, nil
}
