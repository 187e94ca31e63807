package services

import (
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type harness struct {
	products   *fakeProducts
	categories *fakeCategories
	requests   *fakeRequests
	audit      *fakeAudit
	spill      *fakeSpill
	tx         *fakeTx
	publisher  *recordingPublisher

	ledger   *AuditLedger
	executor *MutationExecutor
	pipeline *ChangeRequestService
	bulk     *BulkService
	importer *ImportService
	catalog  *CategoryService
}

func newHarness(seed ...models.Product) *harness {
	h := &harness{
		products:  newFakeProducts(seed...),
		requests:  newFakeRequests(),
		audit:     &fakeAudit{},
		spill:     &fakeSpill{},
		tx:        &fakeTx{},
		publisher: &recordingPublisher{},
	}
	h.categories = newFakeCategories(h.products)
	log := zap.NewNop()
	h.ledger = NewAuditLedger(h.audit, h.spill, Paging{}, nil, log)
	h.executor = NewMutationExecutor(h.products, h.tx)
	h.pipeline = NewChangeRequestService(h.requests, h.products, h.executor, h.ledger, h.tx, h.publisher, Paging{}, nil, log)
	h.bulk = NewBulkService(h.products, h.ledger, h.publisher, nil, log)
	h.importer = NewImportService(h.products, h.ledger, h.tx, nil, log)
	h.catalog = NewCategoryService(h.categories, h.ledger, h.tx, log)
	return h
}

var (
	editor = models.Actor{
		ID:    uuid.MustParse("00000000-0000-0000-0000-0000000000e1"),
		Email: "editor@example.com",
	}
	otherEditor = models.Actor{
		ID:    uuid.MustParse("00000000-0000-0000-0000-0000000000e2"),
		Email: "editor2@example.com",
	}
	approver = models.Actor{
		ID:    uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
		Email: "approver@example.com",
	}
)

func ptr[T any](v T) *T { return &v }

func newProductValues(code string) map[string]any {
	return map[string]any{
		models.FieldProductCode:    code,
		models.FieldProductName:    "Mug " + code,
		models.FieldLevel1Category: "Kitchen",
	}
}
