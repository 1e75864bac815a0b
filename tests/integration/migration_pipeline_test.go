package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stocker/backend/internal/application/mediator"
	migrationapp "github.com/stocker/backend/internal/application/migration"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/infrastructure/cache"
	"github.com/stocker/backend/internal/infrastructure/event"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/persistence"
	"github.com/stocker/backend/internal/infrastructure/storage"
	"github.com/stocker/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pipelineFixture wires the migration handlers and job pool the way the
// server does, with in-memory object storage and idempotency.
type pipelineFixture struct {
	m        *mediator.Mediator
	deals    *persistence.GormDealRepository
	events   *testutil.EventRecorder
	tenantID uuid.UUID
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	tdb := NewSharedTestDB(t)
	log := zap.NewNop()

	bus := event.NewInMemoryEventBus(log)
	events := testutil.NewEventRecorder()
	bus.Subscribe(events)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	jobOpts := []jobqueue.StoreOption{jobqueue.WithRetryBaseDelay(10 * time.Millisecond)}
	deps := migrationapp.Deps{
		Tx:          persistence.NewGormTransactionScope(tdb.DB, jobOpts...),
		Sessions:    persistence.NewGormSessionRepository(tdb.DB),
		Chunks:      persistence.NewGormChunkRepository(tdb.DB),
		Results:     persistence.NewGormValidationResultRepository(tdb.DB),
		Objects:     storage.NewMemoryObjectStorage(),
		Idempotency: cache.NewInMemoryIdempotencyStore(),
		Events:      bus,
	}
	cfg := migrationapp.Config{JobMaxAttempts: 2, ResultBatchSize: 2}

	m := mediator.New(mediator.NewValidationBehavior(), mediator.NewTenantBehavior())
	require.NoError(t, migrationapp.NewHandlers(deps, cfg, log).Register(m))

	pool := jobqueue.NewPool(jobqueue.PoolConfig{
		Workers:           2,
		PollInterval:      20 * time.Millisecond,
		JobTimeout:        30 * time.Second,
		HeartbeatInterval: 200 * time.Millisecond,
		StaleTimeout:      time.Minute,
	}, jobqueue.NewStore(tdb.DB, jobOpts...), jobqueue.NewMetrics(prometheus.NewRegistry()), log)
	migrationapp.NewPipeline(deps, cfg, log).Register(pool)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	return &pipelineFixture{
		m:        m,
		deals:    persistence.NewGormDealRepository(tdb.DB),
		events:   events,
		tenantID: uuid.New(),
	}
}

func (f *pipelineFixture) session(t *testing.T, id uuid.UUID) migrationapp.SessionDTO {
	t.Helper()
	s, err := mediator.Send[migrationapp.GetSessionQuery, migrationapp.SessionDTO](context.Background(), f.m,
		migrationapp.GetSessionQuery{TenantID: f.tenantID, SessionID: id})
	require.NoError(t, err)
	return s
}

func (f *pipelineFixture) waitForStatus(t *testing.T, id uuid.UUID, status string) migrationapp.SessionDTO {
	t.Helper()
	var s migrationapp.SessionDTO
	testutil.RequireEventually(t, func() bool {
		got, err := mediator.Send[migrationapp.GetSessionQuery, migrationapp.SessionDTO](context.Background(), f.m,
			migrationapp.GetSessionQuery{TenantID: f.tenantID, SessionID: id})
		if err != nil {
			return false
		}
		s = got
		return s.Status == status
	}, 30*time.Second, 50*time.Millisecond, "session never reached %s", status)
	return s
}

func TestMigrationPipeline_DealsEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	created, err := mediator.Send[migrationapp.CreateSessionCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.CreateSessionCommand{
			TenantID:           f.tenantID,
			Name:               "Legacy CRM",
			SourceSystem:       "csv",
			EntityTypes:        []string{"deal"},
			SkipInvalidRecords: true,
		})
	require.NoError(t, err)
	assert.Equal(t, "CREATED", created.Status)

	csv := "external_ref,title,stage,amount,currency\n" +
		"L-1,Cold storage,PROPOSAL,12000,usd\n" +
		"L-2,Forklift lease,QUALIFICATION,3400.50,USD\n" +
		"L-3,,PROSPECTING,10,USD\n"
	uploaded, err := mediator.Send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](ctx, f.m,
		migrationapp.UploadChunkCommand{
			TenantID:   f.tenantID,
			SessionID:  created.ID,
			EntityType: "deal",
			Data:       []byte(csv),
		})
	require.NoError(t, err)
	assert.Equal(t, 3, uploaded.Session.TotalRecords)
	require.Len(t, uploaded.Chunks, 1)
	assert.Equal(t, 1, uploaded.Chunks[0].TotalChunks)

	_, err = mediator.Send[migrationapp.CompleteUploadCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.CompleteUploadCommand{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)

	_, err = mediator.Send[migrationapp.StartValidationCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.StartValidationCommand{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)

	validated := f.waitForStatus(t, created.ID, "VALIDATED")
	assert.Equal(t, 2, validated.ValidRecords+validated.WarningRecords)
	assert.Equal(t, 1, validated.ErrorRecords)

	_, err = mediator.Send[migrationapp.StartImportCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.StartImportCommand{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)

	done := f.waitForStatus(t, created.ID, "COMPLETED")
	assert.Equal(t, 2, done.ImportedRecords)
	assert.Equal(t, 1, done.SkippedRecords)
	assert.Zero(t, done.FailedRecords)

	deal, err := f.deals.FindByExternalRef(ctx, f.tenantID, "L-1")
	require.NoError(t, err)
	assert.Equal(t, crm.DealStageProposal, deal.Stage)
	assert.Equal(t, "USD", deal.Currency)

	_, err = f.deals.FindByExternalRef(ctx, uuid.New(), "L-1")
	assert.Error(t, err, "imported deals belong to the session's tenant only")

	assert.True(t, f.events.WaitFor(1, 5*time.Second))
}

func TestMigrationPipeline_DuplicateChunkRejected(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	created, err := mediator.Send[migrationapp.CreateSessionCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.CreateSessionCommand{
			TenantID: f.tenantID, Name: "Replays", SourceSystem: "generic", EntityTypes: []string{"deal"},
		})
	require.NoError(t, err)

	upload := migrationapp.UploadChunkCommand{
		TenantID:    f.tenantID,
		SessionID:   created.ID,
		EntityType:  "deal",
		TotalChunks: 1,
		Data:        []byte(`[{"external_ref":"R-1","title":"Only once"}]`),
	}
	_, err = mediator.Send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](ctx, f.m, upload)
	require.NoError(t, err)
	_, err = mediator.Send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](ctx, f.m, upload)
	require.Error(t, err)

	s := f.session(t, created.ID)
	assert.Equal(t, 1, s.TotalChunks)
	assert.Equal(t, 1, s.TotalRecords)
}

func TestMigrationPipeline_ChunkTotalsAreStored(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	created, err := mediator.Send[migrationapp.CreateSessionCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.CreateSessionCommand{
			TenantID:     f.tenantID,
			Name:         "Split uploads",
			SourceSystem: "csv",
			EntityTypes:  []string{"deal"},
			BatchSize:    2,
		})
	require.NoError(t, err)

	// A JSON chunk without a declared total.
	_, err = mediator.Send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](ctx, f.m,
		migrationapp.UploadChunkCommand{
			TenantID:   f.tenantID,
			SessionID:  created.ID,
			EntityType: "deal",
			Data:       []byte(`[{"external_ref":"J-1","title":"From JSON"}]`),
		})
	require.NoError(t, err)

	csv := "external_ref,title\nC-1,One\nC-2,Two\nC-3,Three\nC-4,Four\nC-5,Five\n"
	uploaded, err := mediator.Send[migrationapp.UploadChunkCommand, migrationapp.UploadChunkResult](ctx, f.m,
		migrationapp.UploadChunkCommand{
			TenantID:   f.tenantID,
			SessionID:  created.ID,
			EntityType: "deal",
			Data:       []byte(csv),
		})
	require.NoError(t, err)
	require.Len(t, uploaded.Chunks, 3)
	assert.Equal(t, 4, uploaded.Session.TotalChunks)
	assert.Equal(t, 6, uploaded.Session.TotalRecords)

	chunks, err := mediator.Send[migrationapp.ListChunksQuery, []migrationapp.ChunkDTO](ctx, f.m,
		migrationapp.ListChunksQuery{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Zero(t, chunks[0].TotalChunks, "no total was declared")
	for i, c := range chunks[1:] {
		assert.Equal(t, i+1, c.ChunkIndex)
		assert.Equal(t, 4, c.TotalChunks)
	}
	assert.Equal(t, []int{1, 2, 2, 1}, []int{chunks[0].RecordCount, chunks[1].RecordCount, chunks[2].RecordCount, chunks[3].RecordCount})

	_, err = mediator.Send[migrationapp.CompleteUploadCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.CompleteUploadCommand{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)
	_, err = mediator.Send[migrationapp.StartValidationCommand, migrationapp.SessionDTO](ctx, f.m,
		migrationapp.StartValidationCommand{TenantID: f.tenantID, SessionID: created.ID})
	require.NoError(t, err)

	validated := f.waitForStatus(t, created.ID, "VALIDATED")
	assert.Equal(t, 6, validated.ValidRecords+validated.WarningRecords)
}
