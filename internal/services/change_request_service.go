package services

import (
	"context"
	"fmt"
	"time"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/events"
	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SubmitInput struct {
	ActorRole      rbac.Role
	ChangeType     string
	TargetID       *int64
	ProposedValues map[string]any
	Requester      models.Actor
	Description    *string
	OriginAddress  *string
}

// SubmitResult reports whether the change ran immediately or was queued.
type SubmitResult struct {
	Executed        bool            `json:"executed"`
	Result          *models.Product `json:"result,omitempty"`
	ChangeRequestID *uuid.UUID      `json:"change_request_id,omitempty"`
}

type ReviewInput struct {
	RequestID     uuid.UUID
	ReviewerRole  rbac.Role
	Reviewer      models.Actor
	Decision      string
	Notes         *string
	OriginAddress *string
}

// ReviewResult is the terminal state reached by a review. An approval whose
// change could not be applied ends as rejected with ExecutionFailed set.
type ReviewResult struct {
	RequestID       uuid.UUID             `json:"request_id"`
	Status          string                `json:"status"`
	ExecutionFailed bool                  `json:"execution_failed"`
	FailureReason   string                `json:"failure_reason,omitempty"`
	Result          *models.Product       `json:"result,omitempty"`
	ChangeRequest   *models.ChangeRequest `json:"change_request"`
}

type ListInput struct {
	CallerRole  rbac.Role
	CallerID    uuid.UUID
	Status      string
	RequesterID *uuid.UUID
	Page        int
	PageSize    int
}

type ChangeRequestPage struct {
	Requests   []models.ChangeRequest     `json:"requests"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
	Stats      *models.ChangeRequestStats `json:"stats,omitempty"`
}

// ChangeRequestService decides whether a proposed change runs now or waits
// for an approver, and drives pending requests to a terminal state.
type ChangeRequestService struct {
	requests  ChangeRequestStore
	products  ProductStore
	executor  *MutationExecutor
	ledger    *AuditLedger
	tx        db.Transactor
	publisher events.Publisher
	paging    Paging
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewChangeRequestService(
	requests ChangeRequestStore,
	products ProductStore,
	executor *MutationExecutor,
	ledger *AuditLedger,
	tx db.Transactor,
	publisher events.Publisher,
	paging Paging,
	m *metrics.Metrics,
	log *zap.Logger,
) *ChangeRequestService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ChangeRequestService{
		requests:  requests,
		products:  products,
		executor:  executor,
		ledger:    ledger,
		tx:        tx,
		publisher: publisher,
		paging:    paging,
		metrics:   m,
		log:       log,
	}
}

func (s *ChangeRequestService) Submit(ctx context.Context, in SubmitInput) (res SubmitResult, err error) {
	ctx, span := tracer.Start(ctx, "ChangeRequestService.Submit", trace.WithAttributes(
		attribute.String("change_type", in.ChangeType),
		attribute.String("actor_role", in.ActorRole.String()),
	))
	defer func() { endSpan(span, err) }()

	if !rbac.HasPermission(in.ActorRole, rbac.RoleEditor) {
		return SubmitResult{}, apperr.PermissionDenied("role %s cannot propose changes", in.ActorRole)
	}
	if !models.IsValidChangeType(in.ChangeType) {
		return SubmitResult{}, apperr.Validation("change_type", "invalid change type %q, must be one of: create, update, delete", in.ChangeType)
	}
	if in.ChangeType != models.ChangeTypeCreate && in.TargetID == nil {
		return SubmitResult{}, apperr.Validation("target_id", "required for %s", in.ChangeType)
	}

	if rbac.HasPermission(in.ActorRole, rbac.RoleApprover) {
		return s.executeDirect(ctx, in)
	}
	return s.enqueue(ctx, in)
}

func (s *ChangeRequestService) executeDirect(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	applied, err := s.executor.Apply(ctx, in.ChangeType, in.TargetID, in.ProposedValues)
	if err != nil {
		return SubmitResult{}, err
	}

	targetID := in.TargetID
	newValues := in.ProposedValues
	if applied.Result != nil {
		targetID = &applied.Result.ID
		newValues = applied.Result.Values()
	}
	if in.ChangeType == models.ChangeTypeDelete {
		newValues = nil
	}

	s.ledger.Record(ctx, AuditEntryInput{
		Actor:          in.Requester,
		ActionType:     models.ActionForChange(in.ChangeType),
		TargetEntityID: targetID,
		PriorValues:    applied.PriorState,
		NewValues:      newValues,
		AffectedCount:  1,
		Details:        withDescription(fmt.Sprintf("%s product %s", in.ChangeType, entityLabel(targetID)), in.Description),
		OriginAddress:  in.OriginAddress,
	})

	_ = s.publisher.Publish(ctx, events.StreamCatalog, events.Event{
		Type: events.EventChangeApplied,
		Payload: map[string]any{
			"change_type":  in.ChangeType,
			"target_id":    targetID,
			"requester_id": in.Requester.ID.String(),
		},
	})

	s.metrics.IncSubmission(in.ChangeType, "executed")
	s.log.Info("change applied directly",
		zap.String("change_type", in.ChangeType),
		zap.String("actor_id", in.Requester.ID.String()),
	)
	return SubmitResult{Executed: true, Result: applied.Result}, nil
}

func (s *ChangeRequestService) enqueue(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	var proposed map[string]any
	var err error
	switch in.ChangeType {
	case models.ChangeTypeCreate:
		proposed, err = prepareCreate(in.ProposedValues)
	case models.ChangeTypeUpdate:
		proposed, err = models.NormalizeProductValues(in.ProposedValues)
		if err == nil && len(proposed) == 0 {
			err = apperr.Validation("proposed_values", "no fields to update")
		}
	case models.ChangeTypeDelete:
		proposed = map[string]any{}
	}
	if err != nil {
		return SubmitResult{}, err
	}

	var cr *models.ChangeRequest
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var prior map[string]any
		if in.TargetID != nil {
			p, err := s.products.GetByID(ctx, *in.TargetID)
			if err != nil {
				return err
			}
			prior = p.Values()
		}

		var err error
		cr, err = s.requests.Create(ctx, &models.ChangeRequest{
			TargetCollection: models.CollectionProducts,
			TargetEntityID:   in.TargetID,
			ChangeType:       in.ChangeType,
			ProposedValues:   proposed,
			PriorValues:      prior,
			Description:      in.Description,
			RequesterID:      in.Requester.ID,
			RequesterEmail:   in.Requester.Email,
			RequesterName:    in.Requester.Name,
		})
		return err
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.ledger.Record(ctx, AuditEntryInput{
		Actor:          in.Requester,
		ActionType:     models.ActionSubmitChange,
		TargetEntityID: in.TargetID,
		PriorValues:    cr.PriorValues,
		NewValues:      cr.ProposedValues,
		AffectedCount:  1,
		Details: withDescription(fmt.Sprintf("submitted %s request %s for product %s",
			in.ChangeType, cr.ID, entityLabel(in.TargetID)), in.Description),
		OriginAddress: in.OriginAddress,
	})

	_ = s.publisher.Publish(ctx, events.StreamCatalog, events.Event{
		Type: events.EventChangeRequestSubmitted,
		Payload: map[string]any{
			"change_request_id": cr.ID.String(),
			"change_type":       cr.ChangeType,
			"target_id":         cr.TargetEntityID,
			"requester_id":      cr.RequesterID.String(),
		},
	})

	s.metrics.IncSubmission(in.ChangeType, "queued")
	s.log.Info("change request submitted",
		zap.String("change_request_id", cr.ID.String()),
		zap.String("change_type", cr.ChangeType),
		zap.String("requester_id", cr.RequesterID.String()),
	)
	id := cr.ID
	return SubmitResult{Executed: false, ChangeRequestID: &id}, nil
}

func (s *ChangeRequestService) Review(ctx context.Context, in ReviewInput) (res ReviewResult, err error) {
	ctx, span := tracer.Start(ctx, "ChangeRequestService.Review", trace.WithAttributes(
		attribute.String("change_request_id", in.RequestID.String()),
		attribute.String("decision", in.Decision),
	))
	defer func() { endSpan(span, err) }()

	if !rbac.HasPermission(in.ReviewerRole, rbac.RoleApprover) {
		return ReviewResult{}, apperr.PermissionDenied("role %s cannot review changes", in.ReviewerRole)
	}
	if in.Decision != models.ChangeStatusApproved && in.Decision != models.ChangeStatusRejected {
		return ReviewResult{}, apperr.Validation("decision", "must be approved or rejected, got %q", in.Decision)
	}

	start := time.Now()
	defer s.metrics.ObserveReview(start)

	if in.Decision == models.ChangeStatusRejected {
		cr, err := s.requests.TransitionFromPending(ctx, in.RequestID, models.ChangeStatusRejected, in.Reviewer, in.Notes)
		if err != nil {
			return ReviewResult{}, err
		}
		res = ReviewResult{RequestID: cr.ID, Status: cr.Status, ChangeRequest: cr}
		s.reviewed(ctx, res, in.Reviewer)
		return res, nil
	}

	return s.approve(ctx, in)
}

// approve flips the request to approved and applies its change in one
// transaction. When the change itself cannot be applied the transaction is
// rolled back and the request is rejected with the reason instead.
func (s *ChangeRequestService) approve(ctx context.Context, in ReviewInput) (ReviewResult, error) {
	var (
		cr      *models.ChangeRequest
		applied ApplyResult
		execErr error
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		cr, err = s.requests.TransitionFromPending(ctx, in.RequestID, models.ChangeStatusApproved, in.Reviewer, in.Notes)
		if err != nil {
			return err
		}
		applied, execErr = s.executor.Apply(ctx, cr.ChangeType, cr.TargetEntityID, cr.ProposedValues)
		return execErr
	})

	switch {
	case err == nil:
	case execErr != nil && apperr.IsDomain(execErr):
		return s.rejectFailedExecution(ctx, in, execErr)
	default:
		return ReviewResult{}, err
	}

	targetID := cr.TargetEntityID
	newValues := cr.ProposedValues
	if applied.Result != nil {
		targetID = &applied.Result.ID
		newValues = applied.Result.Values()
	}
	if cr.ChangeType == models.ChangeTypeDelete {
		newValues = nil
	}

	s.ledger.Record(ctx, AuditEntryInput{
		Actor:          cr.Requester(),
		ActionType:     models.ActionForChange(cr.ChangeType),
		TargetEntityID: targetID,
		PriorValues:    applied.PriorState,
		NewValues:      newValues,
		AffectedCount:  1,
		Details: withDescription(fmt.Sprintf("%s product %s, request %s approved by %s",
			cr.ChangeType, entityLabel(targetID), cr.ID, in.Reviewer.Email), cr.Description),
		OriginAddress: in.OriginAddress,
	})

	res := ReviewResult{RequestID: cr.ID, Status: cr.Status, Result: applied.Result, ChangeRequest: cr}
	s.reviewed(ctx, res, in.Reviewer)
	return res, nil
}

func (s *ChangeRequestService) rejectFailedExecution(ctx context.Context, in ReviewInput, execErr error) (ReviewResult, error) {
	failure := apperr.ExecutionFailure(execErr)
	note := failure.Error()
	if in.Notes != nil && *in.Notes != "" {
		note = fmt.Sprintf("%s; reviewer notes: %s", note, *in.Notes)
	}

	cr, err := s.requests.TransitionFromPending(ctx, in.RequestID, models.ChangeStatusRejected, in.Reviewer, &note)
	if err != nil {
		return ReviewResult{}, err
	}

	s.log.Warn("approved change could not be applied, request rejected",
		zap.String("change_request_id", cr.ID.String()),
		zap.Error(execErr),
	)
	res := ReviewResult{
		RequestID:       cr.ID,
		Status:          cr.Status,
		ExecutionFailed: true,
		FailureReason:   execErr.Error(),
		ChangeRequest:   cr,
	}
	s.reviewed(ctx, res, in.Reviewer)
	return res, nil
}

func (s *ChangeRequestService) reviewed(ctx context.Context, res ReviewResult, reviewer models.Actor) {
	_ = s.publisher.Publish(ctx, events.StreamCatalog, events.Event{
		Type: events.EventChangeRequestReviewed,
		Payload: map[string]any{
			"change_request_id": res.RequestID.String(),
			"status":            res.Status,
			"execution_failed":  res.ExecutionFailed,
			"requester_id":      res.ChangeRequest.RequesterID.String(),
			"reviewer_id":       reviewer.ID.String(),
		},
	})
	s.metrics.IncReview(res.Status, res.ExecutionFailed)
	s.log.Info("change request reviewed",
		zap.String("change_request_id", res.RequestID.String()),
		zap.String("status", res.Status),
		zap.String("reviewer_id", reviewer.ID.String()),
	)
}

// List returns a page of requests. Approvers see everything plus per-status
// counts; editors only ever see their own submissions.
func (s *ChangeRequestService) List(ctx context.Context, in ListInput) (ChangeRequestPage, error) {
	if !rbac.HasPermission(in.CallerRole, rbac.RoleEditor) {
		return ChangeRequestPage{}, apperr.PermissionDenied("role %s cannot list change requests", in.CallerRole)
	}
	if in.Status != "" && !isChangeStatus(in.Status) {
		return ChangeRequestPage{}, apperr.Validation("status", "invalid status %q", in.Status)
	}

	page, size, offset := s.paging.resolve(in.Page, in.PageSize)
	filter := repositories.ChangeRequestFilter{
		Status:      in.Status,
		RequesterID: in.RequesterID,
		Limit:       size,
		Offset:      offset,
	}
	isApprover := rbac.HasPermission(in.CallerRole, rbac.RoleApprover)
	if !isApprover {
		caller := in.CallerID
		filter.RequesterID = &caller
	}

	out := ChangeRequestPage{Page: page, PageSize: size}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, total, err := s.requests.List(gctx, filter)
		if err != nil {
			return err
		}
		out.Requests, out.Total = list, total
		return nil
	})

	if isApprover {
		stats := &models.ChangeRequestStats{}
		out.Stats = stats
		counts := map[string]*int{
			models.ChangeStatusPending:  &stats.Pending,
			models.ChangeStatusApproved: &stats.Approved,
			models.ChangeStatusRejected: &stats.Rejected,
			"":                          &stats.Total,
		}
		for status, dst := range counts {
			status, dst := status, dst
			g.Go(func() error {
				n, err := s.requests.CountByStatus(gctx, status)
				if err != nil {
					return err
				}
				*dst = n
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return ChangeRequestPage{}, err
	}
	if out.Requests == nil {
		out.Requests = []models.ChangeRequest{}
	}
	out.TotalPages = totalPages(out.Total, size)
	return out, nil
}

// Get returns one request. Editors get not-found for requests they did not
// submit.
func (s *ChangeRequestService) Get(ctx context.Context, id uuid.UUID, callerRole rbac.Role, callerID uuid.UUID) (*models.ChangeRequest, error) {
	if !rbac.HasPermission(callerRole, rbac.RoleEditor) {
		return nil, apperr.PermissionDenied("role %s cannot view change requests", callerRole)
	}
	cr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.HasPermission(callerRole, rbac.RoleApprover) && cr.RequesterID != callerID {
		return nil, apperr.NotFound("change request %s", id)
	}
	return cr, nil
}

func isChangeStatus(s string) bool {
	for _, st := range models.AllChangeStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func entityLabel(id *int64) string {
	if id == nil {
		return "(new)"
	}
	return fmt.Sprintf("#%d", *id)
}

func withDescription(details string, description *string) string {
	if description == nil || *description == "" {
		return details
	}
	return details + ": " + *description
}

