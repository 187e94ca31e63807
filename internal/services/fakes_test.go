package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/events"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/google/uuid"
)

// undoLog collects compensating actions for writes made inside a fake
// transaction.
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

type undoKey struct{}

func track(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.mu.Lock()
		log.steps = append(log.steps, undo)
		log.mu.Unlock()
	}
}

type fakeTx struct {
	mu      sync.Mutex
	commits int
	aborts  int
}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		t.mu.Lock()
		t.aborts++
		t.mu.Unlock()
		return err
	}
	t.mu.Lock()
	t.commits++
	t.mu.Unlock()
	return nil
}

type fakeProducts struct {
	mu     sync.Mutex
	rows   map[int64]models.Product
	nextID int64
	err    error
}

func newFakeProducts(seed ...models.Product) *fakeProducts {
	f := &fakeProducts{rows: map[int64]models.Product{}, nextID: 1}
	for _, p := range seed {
		f.rows[p.ID] = p
		if p.ID >= f.nextID {
			f.nextID = p.ID + 1
		}
	}
	return f
}

func product(id int64, code, status string) models.Product {
	return models.Product{
		ID:             id,
		ProductCode:    code,
		ProductName:    "Product " + code,
		Level1Category: "Kitchen",
		Status:         status,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeProducts) get(id int64) (models.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	return p, ok
}

func (f *fakeProducts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("product %d", id)
	}
	return &p, nil
}

func (f *fakeProducts) GetForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeProducts) Create(ctx context.Context, values map[string]any) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := models.Product{ID: f.nextID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	applyValues(&p, values)
	if f.codeTaken(p.ProductCode, 0) {
		return nil, apperr.Validation(models.FieldProductCode, "duplicate value")
	}
	f.nextID++
	f.rows[p.ID] = p
	track(ctx, func() { f.remove(p.ID) })
	return &p, nil
}

func (f *fakeProducts) Update(ctx context.Context, id int64, values map[string]any) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prior, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("product %d", id)
	}
	p := prior
	applyValues(&p, values)
	p.UpdatedAt = time.Now()
	f.rows[id] = p
	track(ctx, func() { f.put(prior) })
	return &p, nil
}

func (f *fakeProducts) Delete(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prior, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("product %d", id)
	}
	delete(f.rows, id)
	track(ctx, func() { f.put(prior) })
	return &prior, nil
}

func (f *fakeProducts) UpdateMany(ctx context.Context, ids []int64, values map[string]any) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		_, err := f.Update(ctx, id, values)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeProducts) DeleteMany(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		_, err := f.Delete(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeProducts) InsertMany(ctx context.Context, rows []map[string]any) ([]int64, error) {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		p, err := f.Create(ctx, r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (f *fakeProducts) put(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = p
}

func (f *fakeProducts) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
}

func (f *fakeProducts) codeTaken(code string, except int64) bool {
	for id, p := range f.rows {
		if id != except && p.ProductCode == code {
			return true
		}
	}
	return false
}

func applyValues(p *models.Product, values map[string]any) {
	str := func(v any) *string {
		if s, ok := v.(string); ok {
			return &s
		}
		return nil
	}
	for k, v := range values {
		switch k {
		case models.FieldProductCode:
			p.ProductCode, _ = v.(string)
		case models.FieldProductName:
			p.ProductName, _ = v.(string)
		case models.FieldLevel1Category:
			p.Level1Category, _ = v.(string)
		case models.FieldLevel2Category:
			p.Level2Category = str(v)
		case models.FieldLevel3Category:
			p.Level3Category = str(v)
		case models.FieldStatus:
			p.Status, _ = v.(string)
		case models.FieldMaterial:
			p.Material = str(v)
		case models.FieldColor:
			p.Color = str(v)
		case models.FieldSize:
			p.Size = str(v)
		case models.FieldStyle:
			p.Style = str(v)
		case models.FieldSellingPoints:
			p.SellingPoints = str(v)
		case models.FieldTaxRate:
			if n, ok := v.(float64); ok {
				p.TaxRate = &n
			} else {
				p.TaxRate = nil
			}
		}
	}
}

type fakeRequests struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]models.ChangeRequest
	err      error
	countErr error
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{rows: map[uuid.UUID]models.ChangeRequest{}}
}

func (f *fakeRequests) get(id uuid.UUID) models.ChangeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func (f *fakeRequests) Create(ctx context.Context, cr *models.ChangeRequest) (*models.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *cr
	out.ID = uuid.New()
	out.Status = models.ChangeStatusPending
	out.CreatedAt = time.Now().Add(time.Duration(len(f.rows)) * time.Millisecond)
	f.rows[out.ID] = out
	track(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.rows, out.ID)
	})
	return &out, nil
}

func (f *fakeRequests) GetByID(_ context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cr, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("change request %s", id)
	}
	return &cr, nil
}

func (f *fakeRequests) TransitionFromPending(ctx context.Context, id uuid.UUID, status string, reviewer models.Actor, notes *string) (*models.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prior, ok := f.rows[id]
	if !ok || prior.Status != models.ChangeStatusPending {
		return nil, apperr.NotFound("pending change request %s", id)
	}
	cr := prior
	now := time.Now()
	cr.Status = status
	cr.ReviewerID = &reviewer.ID
	cr.ReviewerEmail = &reviewer.Email
	cr.ReviewerName = reviewer.Name
	cr.ReviewNotes = notes
	cr.ReviewedAt = &now
	f.rows[id] = cr
	track(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.rows[id] = prior
	})
	return &cr, nil
}

func (f *fakeRequests) List(_ context.Context, filter repositories.ChangeRequestFilter) ([]models.ChangeRequest, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	var match []models.ChangeRequest
	for _, cr := range f.rows {
		if filter.Status != "" && cr.Status != filter.Status {
			continue
		}
		if filter.RequesterID != nil && cr.RequesterID != *filter.RequesterID {
			continue
		}
		match = append(match, cr)
	}
	sort.Slice(match, func(i, j int) bool { return match[i].CreatedAt.After(match[j].CreatedAt) })

	total := len(match)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return match[filter.Offset:end], total, nil
}

func (f *fakeRequests) CountByStatus(_ context.Context, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, cr := range f.rows {
		if status == "" || cr.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (f *fakeAudit) Insert(_ context.Context, e models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.entries {
		if existing.ID == e.ID {
			return nil
		}
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) Query(_ context.Context, filter models.AuditFilter, limit, offset int) ([]models.AuditLog, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	var match []models.AuditLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if filter.ActionType != nil && e.ActionType != *filter.ActionType {
			continue
		}
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		match = append(match, e)
	}
	total := len(match)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return match[offset:end], total, nil
}

func (f *fakeAudit) all() []models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuditLog(nil), f.entries...)
}

func (f *fakeAudit) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeSpill struct {
	mu         sync.Mutex
	queue      []repositories.SpilledEntry
	processing []repositories.SpilledEntry
	dead       []string
	pushErr    error
	ackErr     error
}

func (f *fakeSpill) Push(_ context.Context, entries ...models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	for _, e := range entries {
		f.queue = append(f.queue, repositories.SpilledEntry{Entry: e, Raw: e.ID.String()})
	}
	return nil
}

// pushCorrupt queues a value that cannot be decoded.
func (f *fakeSpill) pushCorrupt(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, repositories.SpilledEntry{Raw: raw})
}

func (f *fakeSpill) Claim(_ context.Context, n int) ([]repositories.SpilledEntry, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.queue) {
		n = len(f.queue)
	}
	var claimed []repositories.SpilledEntry
	var corrupt []string
	for _, e := range f.queue[:n] {
		f.processing = append(f.processing, e)
		if e.Entry.ID == uuid.Nil {
			corrupt = append(corrupt, e.Raw)
			continue
		}
		claimed = append(claimed, e)
	}
	f.queue = f.queue[n:]
	return claimed, corrupt, nil
}

func (f *fakeSpill) take(raw string) (repositories.SpilledEntry, bool) {
	for i, e := range f.processing {
		if e.Raw == raw {
			f.processing = append(f.processing[:i], f.processing[i+1:]...)
			return e, true
		}
	}
	return repositories.SpilledEntry{}, false
}

func (f *fakeSpill) Ack(_ context.Context, raws ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	for _, raw := range raws {
		f.take(raw)
	}
	return nil
}

func (f *fakeSpill) Requeue(_ context.Context, raws ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var back []repositories.SpilledEntry
	for _, raw := range raws {
		if e, ok := f.take(raw); ok {
			back = append(back, e)
		}
	}
	f.queue = append(back, f.queue...)
	return nil
}

func (f *fakeSpill) Bury(_ context.Context, raws ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, raw := range raws {
		if _, ok := f.take(raw); ok {
			f.dead = append(f.dead, raw)
		}
	}
	return nil
}

func (f *fakeSpill) Recover(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.processing)
	f.queue = append(f.processing, f.queue...)
	f.processing = nil
	return n, nil
}

func (f *fakeSpill) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *fakeSpill) inFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processing)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.Type)
	return nil
}

type fakeCategories struct {
	mu       sync.Mutex
	rows     map[int64]models.Category
	nextID   int64
	products *fakeProducts
	err      error
}

func newFakeCategories(products *fakeProducts) *fakeCategories {
	return &fakeCategories{rows: map[int64]models.Category{}, nextID: 1, products: products}
}

func (f *fakeCategories) seed(c models.Category) models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		c.ID = f.nextID
	}
	if c.ID >= f.nextID {
		f.nextID = c.ID + 1
	}
	f.rows[c.ID] = c
	return c
}

func (f *fakeCategories) get(id int64) (models.Category, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	return c, ok
}

func (f *fakeCategories) List(_ context.Context, includeInactive bool) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Category, 0, len(f.rows))
	for _, c := range f.rows {
		if c.IsActive || includeInactive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("category %d", id)
	}
	return &c, nil
}

func (f *fakeCategories) GetForUpdate(ctx context.Context, id int64) (*models.Category, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCategories) nameTaken(level int, name string, except int64) bool {
	for id, c := range f.rows {
		if id != except && c.Level == level && c.Name == name {
			return true
		}
	}
	return false
}

func (f *fakeCategories) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.nameTaken(in.Level, in.Name, 0) {
		return nil, apperr.Validation("name", "duplicate value violates categories_level_name_key")
	}
	c := models.Category{
		ID:          f.nextID,
		Name:        in.Name,
		ParentID:    in.ParentID,
		Level:       in.Level,
		Description: in.Description,
		SortOrder:   in.SortOrder,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.nextID++
	f.rows[c.ID] = c
	track(ctx, func() { f.mu.Lock(); delete(f.rows, c.ID); f.mu.Unlock() })
	return &c, nil
}

func (f *fakeCategories) Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prior, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("category %d", id)
	}
	if f.nameTaken(in.Level, in.Name, id) {
		return nil, apperr.Validation("name", "duplicate value violates categories_level_name_key")
	}
	c := prior
	c.Name, c.ParentID, c.Level, c.Description, c.SortOrder = in.Name, in.ParentID, in.Level, in.Description, in.SortOrder
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = time.Now()
	f.rows[id] = c
	track(ctx, func() { f.mu.Lock(); f.rows[id] = prior; f.mu.Unlock() })
	return &c, nil
}

func (f *fakeCategories) SetActive(ctx context.Context, id int64, active bool) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prior, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("category %d", id)
	}
	c := prior
	c.IsActive = active
	f.rows[id] = c
	track(ctx, func() { f.mu.Lock(); f.rows[id] = prior; f.mu.Unlock() })
	return &c, nil
}

func (f *fakeCategories) Delete(ctx context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("category %d", id)
	}
	delete(f.rows, id)
	track(ctx, func() { f.mu.Lock(); f.rows[id] = c; f.mu.Unlock() })
	return &c, nil
}

func (f *fakeCategories) CountChildren(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.rows {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeCategories) CountProductsUsing(_ context.Context, level int, name string) (int, error) {
	f.products.mu.Lock()
	defer f.products.mu.Unlock()
	n := 0
	for _, p := range f.products.rows {
		var v *string
		switch level {
		case 1:
			v = &p.Level1Category
		case 2:
			v = p.Level2Category
		case 3:
			v = p.Level3Category
		}
		if v != nil && *v == name {
			n++
		}
	}
	return n, nil
}
