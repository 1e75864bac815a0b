package migrationapp

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/cache"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/mock"
)

// In-memory repositories with the copy-on-save behaviour of the GORM ones.

type memSessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]migration.MigrationSession
}

func (m *memSessions) FindByID(_ context.Context, tenantID, id uuid.UUID) (*migration.MigrationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) FindByIDUnscoped(_ context.Context, id uuid.UUID) (*migration.MigrationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) FindAll(_ context.Context, tenantID uuid.UUID, f migration.SessionFilter) ([]migration.MigrationSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []migration.MigrationSession
	for _, s := range m.rows {
		if s.TenantID == tenantID && (f.Status == "" || s.Status == f.Status) {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memSessions) Save(_ context.Context, s *migration.MigrationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.rows[s.ID]; ok {
		if stored.Version != s.Version {
			return shared.ErrConcurrencyConflict
		}
		s.IncrementVersion()
	}
	cp := *s
	cp.ClearDomainEvents()
	m.rows[s.ID] = cp
	return nil
}

func (m *memSessions) get(id uuid.UUID) migration.MigrationSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memChunks struct {
	mu   sync.Mutex
	rows map[uuid.UUID]migration.MigrationChunk
}

func (m *memChunks) FindByID(_ context.Context, tenantID, id uuid.UUID) (*migration.MigrationChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (m *memChunks) FindBySession(_ context.Context, tenantID, sessionID uuid.UUID) ([]migration.MigrationChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []migration.MigrationChunk
	for _, c := range m.rows {
		if c.TenantID == tenantID && c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

func (m *memChunks) ExistsByIndex(_ context.Context, sessionID uuid.UUID, et migration.EntityType, idx int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.SessionID == sessionID && c.EntityType == et && c.ChunkIndex == idx {
			return true, nil
		}
	}
	return false, nil
}

func (m *memChunks) Save(_ context.Context, c *migration.MigrationChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = *c
	return nil
}

func (m *memChunks) get(id uuid.UUID) migration.MigrationChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memResults struct {
	mu   sync.Mutex
	rows map[uuid.UUID]migration.MigrationValidationResult
}

func (m *memResults) FindByID(_ context.Context, tenantID, id uuid.UUID) (*migration.MigrationValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &r, nil
}

func (m *memResults) FindBySession(_ context.Context, tenantID, sessionID uuid.UUID, f migration.ResultFilter) ([]migration.MigrationValidationResult, int64, error) {
	var out []migration.MigrationValidationResult
	for _, r := range m.sorted() {
		if r.TenantID == tenantID && r.SessionID == sessionID && (f.Status == "" || r.Status == f.Status) {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memResults) FindByChunk(_ context.Context, tenantID, chunkID uuid.UUID) ([]migration.MigrationValidationResult, error) {
	var out []migration.MigrationValidationResult
	for _, r := range m.sorted() {
		if r.TenantID == tenantID && r.ChunkID == chunkID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memResults) Save(_ context.Context, r *migration.MigrationValidationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

func (m *memResults) SaveBatch(ctx context.Context, rs []*migration.MigrationValidationResult, _ int) error {
	for _, r := range rs {
		_ = m.Save(ctx, r)
	}
	return nil
}

func (m *memResults) DeleteByChunk(_ context.Context, _, chunkID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rows {
		if r.ChunkID == chunkID {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memResults) CountByStatus(_ context.Context, tenantID, sessionID uuid.UUID) ([]migration.StatusCount, error) {
	counts := map[[2]string]int64{}
	for _, r := range m.sorted() {
		if r.TenantID == tenantID && r.SessionID == sessionID {
			counts[[2]string{string(r.EntityType), string(r.Status)}]++
		}
	}
	var out []migration.StatusCount
	for k, n := range counts {
		out = append(out, migration.StatusCount{
			EntityType: migration.EntityType(k[0]),
			Status:     migration.RecordStatus(k[1]),
			Count:      n,
		})
	}
	return out, nil
}

func (m *memResults) TopIssues(_ context.Context, tenantID, sessionID uuid.UUID, limit int) ([]migration.IssueCount, error) {
	counts := map[[2]string]int64{}
	for _, r := range m.sorted() {
		if r.TenantID != tenantID || r.SessionID != sessionID {
			continue
		}
		for _, is := range r.Errors {
			counts[[2]string{is.Field, is.Code}]++
		}
	}
	var out []migration.IssueCount
	for k, n := range counts {
		out = append(out, migration.IssueCount{Field: k[0], Code: k[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Field < out[j].Field
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memResults) sorted() []migration.MigrationValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]migration.MigrationValidationResult, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChunkID != out[j].ChunkID {
			return strings.Compare(out[i].ChunkID.String(), out[j].ChunkID.String()) < 0
		}
		return out[i].RecordIndex < out[j].RecordIndex
	})
	return out
}

func (m *memResults) byStatus(status migration.RecordStatus) []migration.MigrationValidationResult {
	var out []migration.MigrationValidationResult
	for _, r := range m.sorted() {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type memDeals struct {
	mu   sync.Mutex
	rows map[uuid.UUID]crm.Deal
}

func (m *memDeals) FindByID(_ context.Context, tenantID, id uuid.UUID) (*crm.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (m *memDeals) FindByExternalRef(_ context.Context, tenantID uuid.UUID, ref string) (*crm.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if d.TenantID == tenantID && d.ExternalRef == ref {
			return &d, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memDeals) FindAll(_ context.Context, tenantID uuid.UUID, _ crm.DealFilter) ([]crm.Deal, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []crm.Deal
	for _, d := range m.rows {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memDeals) Save(_ context.Context, d *crm.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.ClearDomainEvents()
	m.rows[d.ID] = cp
	return nil
}

func (m *memDeals) Delete(_ context.Context, _, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memDeals) all() []crm.Deal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]crm.Deal, 0, len(m.rows))
	for _, d := range m.rows {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b crm.Deal) int { return strings.Compare(a.ExternalRef, b.ExternalRef) })
	return out
}

type memReorderRules struct {
	mu   sync.Mutex
	rows map[uuid.UUID]inventory.ReorderRule
}

func (m *memReorderRules) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.ReorderRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &r, nil
}

func (m *memReorderRules) FindByProduct(_ context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (*inventory.ReorderRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TenantID != tenantID || r.ProductID != productID {
			continue
		}
		if (r.WarehouseID == nil) != (warehouseID == nil) {
			continue
		}
		if warehouseID == nil || *r.WarehouseID == *warehouseID {
			return &r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memReorderRules) FindAll(_ context.Context, tenantID uuid.UUID, _ inventory.ReorderRuleFilter) ([]inventory.ReorderRule, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.ReorderRule
	for _, r := range m.rows {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memReorderRules) Save(_ context.Context, r *inventory.ReorderRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.ClearDomainEvents()
	m.rows[r.ID] = cp
	return nil
}

// MockJobQueue is a testify mock of JobQueue.
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, req jobqueue.EnqueueRequest) (*jobqueue.JobRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobqueue.JobRun), args.Error(1)
}

func (m *MockJobQueue) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	tenantID uuid.UUID
	sessions *memSessions
	chunks   *memChunks
	results  *memResults
	deals    *memDeals
	rules    *memReorderRules
	jobs     *MockJobQueue
	objects  *storage.MemoryObjectStorage
	idem     *cache.InMemoryIdempotencyStore
	events   *recordingPublisher
	deps     Deps
	cfg      Config
	handlers *Handlers
	pipeline *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		tenantID: uuid.New(),
		sessions: &memSessions{rows: map[uuid.UUID]migration.MigrationSession{}},
		chunks:   &memChunks{rows: map[uuid.UUID]migration.MigrationChunk{}},
		results:  &memResults{rows: map[uuid.UUID]migration.MigrationValidationResult{}},
		deals:    &memDeals{rows: map[uuid.UUID]crm.Deal{}},
		rules:    &memReorderRules{rows: map[uuid.UUID]inventory.ReorderRule{}},
		jobs:     new(MockJobQueue),
		objects:  storage.NewMemoryObjectStorage(),
		idem:     cache.NewInMemoryIdempotencyStore(),
		events:   &recordingPublisher{},
	}
	f.deps = Deps{
		Tx: NewNoOpTransactionScope(Repositories{
			SessionRepo:     f.sessions,
			ChunkRepo:       f.chunks,
			ResultRepo:      f.results,
			DealRepo:        f.deals,
			ReorderRuleRepo: f.rules,
			JobQueue:        f.jobs,
		}),
		Sessions:    f.sessions,
		Chunks:      f.chunks,
		Results:     f.results,
		Objects:     f.objects,
		Idempotency: f.idem,
		Events:      f.events,
	}
	f.cfg = Config{MaxChunkRecords: 100, ValidationConcurrency: 2, JobMaxAttempts: 3}
	f.handlers = NewHandlers(f.deps, f.cfg, nil)
	f.pipeline = NewPipeline(f.deps, f.cfg, nil)
	return f
}

func (f *fixture) close() {
	_ = f.idem.Close()
}
