package services

import (
	"context"
	"time"

	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ledgerWriteTimeout = 5 * time.Second

// AuditEntryInput describes one logical operation to be recorded.
type AuditEntryInput struct {
	Actor            models.Actor
	ActionType       string
	TargetCollection string
	TargetEntityID   *int64
	PriorValues      map[string]any
	NewValues        map[string]any
	AffectedCount    int
	Details          string
	OriginAddress    *string
}

type AuditQuery struct {
	Page     int
	PageSize int
	Filters  models.AuditFilter
}

type AuditPage struct {
	Entries    []models.AuditLog `json:"entries"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// AuditLedger is the append-only record of catalog mutations. Writes are
// best-effort: a failed insert is logged, counted and parked in the spill
// queue, and never reported to the caller.
type AuditLedger struct {
	store   AuditStore
	spill   SpillQueue
	paging  Paging
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewAuditLedger(store AuditStore, spill SpillQueue, paging Paging, m *metrics.Metrics, log *zap.Logger) *AuditLedger {
	return &AuditLedger{
		store:   store,
		spill:   spill,
		paging:  paging,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Record writes one entry. It outlives cancellation of ctx, since the
// mutation it describes has already been committed.
func (l *AuditLedger) Record(ctx context.Context, in AuditEntryInput) {
	if !models.IsValidAuditAction(in.ActionType) {
		l.log.Error("dropping ledger entry with unknown action", zap.String("action_type", in.ActionType))
		return
	}

	entry := models.AuditLog{
		ID:               uuid.New(),
		ActorEmail:       in.Actor.Email,
		ActorName:        in.Actor.Name,
		ActionType:       in.ActionType,
		TargetCollection: in.TargetCollection,
		TargetEntityID:   in.TargetEntityID,
		PriorValues:      in.PriorValues,
		NewValues:        in.NewValues,
		AffectedCount:    in.AffectedCount,
		Details:          in.Details,
		OriginAddress:    in.OriginAddress,
		CreatedAt:        l.now().UTC(),
	}
	if in.Actor.ID != uuid.Nil {
		id := in.Actor.ID
		entry.ActorID = &id
	}
	if entry.ActorEmail == "" {
		entry.ActorEmail = "unknown"
	}
	if entry.TargetCollection == "" {
		entry.TargetCollection = models.CollectionProducts
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	err := l.store.Insert(ctx, entry)
	if err == nil {
		return
	}

	l.metrics.IncLedgerFailure()
	l.log.Error("failed to write ledger entry",
		zap.String("entry_id", entry.ID.String()),
		zap.String("action_type", entry.ActionType),
		zap.Error(err),
	)

	if l.spill == nil {
		return
	}
	if err := l.spill.Push(ctx, entry); err != nil {
		l.log.Error("failed to spill ledger entry, entry lost",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
		return
	}
	l.metrics.IncLedgerSpilled()
}

// Query returns one page of entries, most recent first.
func (l *AuditLedger) Query(ctx context.Context, q AuditQuery) (AuditPage, error) {
	page, size, offset := l.paging.resolve(q.Page, q.PageSize)

	entries, total, err := l.store.Query(ctx, q.Filters, size, offset)
	if err != nil {
		return AuditPage{}, err
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return AuditPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(total, size),
	}, nil
}

// LedgerReplayer moves spilled entries back into the ledger store.
type LedgerReplayer struct {
	store   AuditStore
	spill   SpillClaimer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewLedgerReplayer(store AuditStore, spill SpillClaimer, m *metrics.Metrics, log *zap.Logger) *LedgerReplayer {
	return &LedgerReplayer{store: store, spill: spill, metrics: m, log: log}
}

// RecoverInFlight requeues entries claimed by a replay that never finished.
// Run it before the first Replay.
func (r *LedgerReplayer) RecoverInFlight(ctx context.Context) (int, error) {
	n, err := r.spill.Recover(ctx)
	if n > 0 {
		r.log.Warn("requeued in-flight ledger entries from an interrupted replay", zap.Int("count", n))
	}
	return n, err
}

// Replay claims up to batch entries and writes them. On the first failed
// insert the written entries are acked, the failed entry and everything
// after it go back to the head of the queue, and the error is returned.
// Inserts are idempotent on entry id, so re-delivery is harmless.
func (r *LedgerReplayer) Replay(ctx context.Context, batch int) (int, error) {
	claimed, corrupt, err := r.spill.Claim(ctx, batch)
	if err != nil {
		return 0, err
	}
	settle := context.WithoutCancel(ctx)

	if len(corrupt) > 0 {
		r.log.Error("undecodable spilled ledger entries moved to dead-letter list", zap.Int("count", len(corrupt)))
		if err := r.spill.Bury(settle, corrupt...); err != nil {
			r.log.Error("failed to bury undecodable ledger entries", zap.Error(err))
		}
	}

	for i, e := range claimed {
		if err := r.store.Insert(ctx, e.Entry); err != nil {
			r.ack(settle, claimed[:i])
			if perr := r.spill.Requeue(settle, raws(claimed[i:])...); perr != nil {
				r.log.Error("failed to requeue ledger entries",
					zap.Int("count", len(claimed)-i),
					zap.Error(perr),
				)
			}
			r.metrics.AddLedgerReplayed(i)
			return i, err
		}
	}

	r.ack(settle, claimed)
	r.metrics.AddLedgerReplayed(len(claimed))
	if len(claimed) > 0 {
		r.log.Info("replayed spilled ledger entries", zap.Int("count", len(claimed)))
	}
	return len(claimed), nil
}

// ack failures leave entries in the processing list; RecoverInFlight
// replays them later, which the idempotent insert absorbs.
func (r *LedgerReplayer) ack(ctx context.Context, entries []repositories.SpilledEntry) {
	if err := r.spill.Ack(ctx, raws(entries)...); err != nil {
		r.log.Warn("failed to ack replayed ledger entries", zap.Int("count", len(entries)), zap.Error(err))
	}
}

func raws(entries []repositories.SpilledEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Raw
	}
	return out
}
