package migrationapp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/migration"
	csvimport "github.com/stocker/backend/internal/infrastructure/import"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (f *fixture) job(t *testing.T, jobType string, sessionID uuid.UUID) *jobqueue.JobRun {
	t.Helper()
	payload, err := json.Marshal(SessionJobPayload{SessionID: sessionID})
	require.NoError(t, err)
	return &jobqueue.JobRun{
		ID:          uuid.New(),
		TenantID:    f.tenantID,
		JobType:     jobType,
		Payload:     payload,
		Status:      jobqueue.StatusRunning,
		Attempts:    1,
		MaxAttempts: 3,
	}
}

// expectEnqueue answers the next Enqueue of job's type with job.
func (f *fixture) expectEnqueue(job *jobqueue.JobRun) {
	f.jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(r jobqueue.EnqueueRequest) bool {
		return r.JobType == job.JobType
	})).Return(job, nil).Once()
}

func (f *fixture) startValidation(t *testing.T, sessionID uuid.UUID) *jobqueue.JobRun {
	t.Helper()
	job := f.job(t, JobTypeValidate, sessionID)
	f.expectEnqueue(job)
	_, err := f.handlers.StartValidation(context.Background(), StartValidationCommand{TenantID: f.tenantID, SessionID: sessionID})
	require.NoError(t, err)
	return job
}

func (f *fixture) startImport(t *testing.T, sessionID uuid.UUID) *jobqueue.JobRun {
	t.Helper()
	job := f.job(t, JobTypeImport, sessionID)
	f.expectEnqueue(job)
	_, err := f.handlers.StartImport(context.Background(), StartImportCommand{TenantID: f.tenantID, SessionID: sessionID})
	require.NoError(t, err)
	return job
}

// uploaded opens a session holding one chunk per records slice.
func (f *fixture) uploaded(t *testing.T, opts migration.SessionOptions, chunks ...[]map[string]any) *migration.MigrationSession {
	t.Helper()
	s := f.createSession(t, opts)
	for i, recs := range chunks {
		f.upload(t, s.ID, migration.EntityDeal, i, recs...)
	}
	_, err := f.handlers.CompleteUpload(context.Background(), CompleteUploadCommand{TenantID: f.tenantID, SessionID: s.ID})
	require.NoError(t, err)
	return s
}

// validated returns a VALIDATED session holding records in one chunk.
func (f *fixture) validated(t *testing.T, opts migration.SessionOptions, records ...map[string]any) *migration.MigrationSession {
	t.Helper()
	s := f.uploaded(t, opts, records)
	job := f.startValidation(t, s.ID)
	require.NoError(t, f.pipeline.Validate(context.Background(), job))
	stored := f.sessions.get(s.ID)
	require.Equal(t, migration.SessionStatusValidated, stored.Status)
	return &stored
}

func TestValidate_ChecksUniquenessAcrossChunks(t *testing.T) {
	f := newFixture()
	defer f.close()
	// One chunk at a time so the first occurrence is deterministic.
	f.pipeline = NewPipeline(f.deps, Config{ValidationConcurrency: 1}, nil)
	s := f.uploaded(t, migration.SessionOptions{},
		[]map[string]any{deal("D-1", "First"), deal("D-2", "")},
		[]map[string]any{deal("D-1", "Again"), deal("D-3", "Third", "legacy_code", "X9")},
	)
	job := f.startValidation(t, s.ID)

	require.NoError(t, f.pipeline.Validate(context.Background(), job))

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusValidated, stored.Status)
	assert.Equal(t, 1, stored.ValidRecords)
	assert.Equal(t, 1, stored.WarningRecords)
	assert.Equal(t, 2, stored.ErrorRecords)
	assert.NotNil(t, stored.ValidatedAt)
	assert.Contains(t, f.events.types(), migration.EventTypeValidationCompleted)

	errs := f.results.byStatus(migration.RecordStatusError)
	require.Len(t, errs, 2)
	var codes []string
	for _, r := range errs {
		for _, is := range r.Errors {
			codes = append(codes, is.Code)
		}
	}
	assert.ElementsMatch(t, []string{csvimport.ErrCodeImportRequiredField, csvimport.ErrCodeImportDuplicateInFile}, codes)

	warned := f.results.byStatus(migration.RecordStatusWarning)
	require.Len(t, warned, 1)
	assert.Equal(t, csvimport.WarnCodeImportUnknownField, warned[0].Warnings[0].Code)
	assert.NotContains(t, warned[0].TransformedData, "legacy_code")

	chunks, err := f.chunks.FindBySession(context.Background(), f.tenantID, s.ID)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, migration.ChunkStatusValidated, c.Status)
	}
}

func TestValidate_RetryStartsOver(t *testing.T) {
	f := newFixture()
	defer f.close()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One"), deal("D-2", "Two")})
	job := f.startValidation(t, s.ID)

	// A previous attempt got through part of the session.
	partial := f.sessions.get(s.ID)
	require.NoError(t, partial.RecordValidationProgress(2, 0, 0))
	require.NoError(t, f.sessions.Save(context.Background(), &partial))

	job.Attempts = 2
	require.NoError(t, f.pipeline.Validate(context.Background(), job))

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusValidated, stored.Status)
	assert.Equal(t, 2, stored.ValidRecords)
	assert.Len(t, f.results.byStatus(migration.RecordStatusValid), 2)
}

func TestValidate_IgnoresJobThatDoesNotOwnSession(t *testing.T) {
	f := newFixture()
	defer f.close()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One")})
	f.startValidation(t, s.ID)

	stale := f.job(t, JobTypeValidate, s.ID)
	require.NoError(t, f.pipeline.Validate(context.Background(), stale))

	assert.Equal(t, migration.SessionStatusValidating, f.sessions.get(s.ID).Status)
	assert.Empty(t, f.results.sorted())
}

func TestValidate_MissingSessionDropsJob(t *testing.T) {
	f := newFixture()
	defer f.close()
	assert.NoError(t, f.pipeline.Validate(context.Background(), f.job(t, JobTypeValidate, uuid.New())))
}

func TestValidate_FailureOnLastAttemptFailsSession(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One")})
	job := f.startValidation(t, s.ID)

	chunks, err := f.chunks.FindBySession(ctx, f.tenantID, s.ID)
	require.NoError(t, err)
	require.NoError(t, f.objects.Delete(ctx, chunks[0].StorageKey))

	err = f.pipeline.Validate(ctx, job)
	require.Error(t, err)
	assert.Equal(t, migration.SessionStatusValidating, f.sessions.get(s.ID).Status, "retries remain")
	assert.Equal(t, migration.ChunkStatusPending, f.chunks.get(chunks[0].ID).Status)

	job.Attempts = job.MaxAttempts
	err = f.pipeline.Validate(ctx, job)
	require.Error(t, err)

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, JobTypeValidate)
	assert.Contains(t, f.events.types(), migration.EventTypeSessionFailed)

	chunk := f.chunks.get(chunks[0].ID)
	assert.Equal(t, migration.ChunkStatusFailed, chunk.Status)
	assert.Contains(t, chunk.ErrorMessage, "read chunk payload")
	assert.NotNil(t, chunk.ProcessedAt)
}

func TestValidate_TimeoutOnLastAttemptFailsSession(t *testing.T) {
	f := newFixture()
	defer f.close()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One")})
	job := f.startValidation(t, s.ID)
	job.Attempts = job.MaxAttempts

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := f.pipeline.Validate(ctx, job)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "deadline exceeded")

	chunks, err := f.chunks.FindBySession(context.Background(), f.tenantID, s.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, migration.ChunkStatusFailed, chunks[0].Status)
}

func TestValidate_TimeoutWithRetriesLeftKeepsSession(t *testing.T) {
	f := newFixture()
	defer f.close()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One")})
	job := f.startValidation(t, s.ID)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	require.ErrorIs(t, f.pipeline.Validate(ctx, job), context.DeadlineExceeded)

	assert.Equal(t, migration.SessionStatusValidating, f.sessions.get(s.ID).Status)
}

func TestValidate_LostLeaseLeavesSession(t *testing.T) {
	f := newFixture()
	defer f.close()
	s := f.uploaded(t, migration.SessionOptions{}, []map[string]any{deal("D-1", "One")})
	job := f.startValidation(t, s.ID)
	job.Attempts = job.MaxAttempts

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(jobqueue.ErrJobNotRunning)
	require.Error(t, f.pipeline.Validate(ctx, job))

	assert.Equal(t, migration.SessionStatusValidating, f.sessions.get(s.ID).Status)
	assert.NotContains(t, f.events.types(), migration.EventTypeSessionFailed)
}

func TestImport_FailureOnLastAttemptFailsChunk(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	s := f.validated(t, migration.SessionOptions{}, deal("D-1", "One"))

	f.pipeline = NewPipeline(f.deps, f.cfg, nil)
	f.pipeline.deps.Importers = map[migration.EntityType]RecordImporter{}
	job := f.startImport(t, s.ID)
	job.Attempts = job.MaxAttempts

	err := f.pipeline.Import(ctx, job)
	require.Error(t, err)

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, JobTypeImport)

	chunks, err := f.chunks.FindBySession(ctx, f.tenantID, s.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, migration.ChunkStatusFailed, chunks[0].Status)
	assert.Contains(t, chunks[0].ErrorMessage, "no importer")
	assert.Empty(t, f.deals.all())
}

func TestImport_CreatesDealsAndSkipsInvalidRecords(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	s := f.validated(t, migration.SessionOptions{SkipInvalidRecords: true},
		deal("D-1", "Proposal deal", "stage", "PROPOSAL", "amount", "1500.50", "currency", "usd"),
		deal("D-2", "Won deal", "status", "WON"),
		deal("D-3", ""),
	)
	job := f.startImport(t, s.ID)

	require.NoError(t, f.pipeline.Import(ctx, job))

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.ImportedRecords)
	assert.Equal(t, 1, stored.SkippedRecords)
	assert.Zero(t, stored.FailedRecords)

	deals := f.deals.all()
	require.Len(t, deals, 2)
	assert.Equal(t, "D-1", deals[0].ExternalRef)
	assert.Equal(t, crm.DealStageProposal, deals[0].Stage)
	assert.True(t, deals[0].Amount.Equal(decimal.RequireFromString("1500.5")))
	assert.Equal(t, "USD", deals[0].Currency)
	assert.Equal(t, crm.DealStatusWon, deals[1].Status)

	types := f.events.types()
	assert.Contains(t, types, crm.EventTypeDealStageChanged)
	assert.Contains(t, types, crm.EventTypeDealWon)
	assert.Contains(t, types, migration.EventTypeSessionCompleted)

	chunks, err := f.chunks.FindBySession(ctx, f.tenantID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, migration.ChunkStatusImported, chunks[0].Status)
	assert.Equal(t, 2, chunks[0].ImportedRecords)
}

func TestImport_ResumesAfterHeldChunk(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	f.pipeline = NewPipeline(f.deps, Config{ValidationConcurrency: 1}, nil)
	s := f.uploaded(t, migration.SessionOptions{},
		[]map[string]any{deal("D-1", "One"), deal("D-2", "Two")},
		[]map[string]any{deal("D-3", "Three")},
	)
	require.NoError(t, f.pipeline.Validate(ctx, f.startValidation(t, s.ID)))
	job := f.startImport(t, s.ID)

	chunks, err := f.chunks.FindBySession(ctx, f.tenantID, s.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	held := chunkImportKey(&chunks[1])
	claimed, err := f.idem.MarkProcessed(ctx, held, time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	err = f.pipeline.Import(ctx, job)
	assert.ErrorIs(t, err, ErrChunkInFlight)
	assert.Len(t, f.deals.all(), 2)
	assert.Equal(t, migration.SessionStatusImporting, f.sessions.get(s.ID).Status)

	require.NoError(t, f.idem.Release(ctx, held))
	job.Attempts = 2
	require.NoError(t, f.pipeline.Import(ctx, job))

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.ImportedRecords, "the first chunk is not imported twice")
	assert.Len(t, f.deals.all(), 3)
}

func TestImport_CancelledSessionIsLeftAlone(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	s := f.validated(t, migration.SessionOptions{}, deal("D-1", "One"))
	job := f.startImport(t, s.ID)

	f.jobs.On("Cancel", mock.Anything, job.ID).Return(true, nil).Once()
	_, err := f.handlers.CancelSession(ctx, CancelSessionCommand{TenantID: f.tenantID, SessionID: s.ID})
	require.NoError(t, err)

	require.NoError(t, f.pipeline.Import(ctx, job))
	assert.Empty(t, f.deals.all())
	assert.Equal(t, migration.SessionStatusCancelled, f.sessions.get(s.ID).Status)
}

func TestImport_ConflictModes(t *testing.T) {
	tests := []struct {
		mode      migration.ConflictMode
		imported  int
		skipped   int
		conflicts int
		failed    int
		wantTitle string
	}{
		{mode: migration.ConflictModeSkip, skipped: 1, conflicts: 1, wantTitle: "Old title"},
		{mode: migration.ConflictModeFail, failed: 1, wantTitle: "Old title"},
		{mode: migration.ConflictModeUpdate, imported: 1, wantTitle: "New title"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newFixture()
			defer f.close()
			ctx := context.Background()

			existing, err := crm.NewDeal(f.tenantID, crm.DealDetails{Title: "Old title"})
			require.NoError(t, err)
			existing.ExternalRef = "D-1"
			require.NoError(t, existing.Lose("budget cut"))
			require.NoError(t, f.deals.Save(ctx, existing))

			s := f.validated(t, migration.SessionOptions{ConflictMode: tt.mode}, deal("D-1", "New title"))
			require.NoError(t, f.pipeline.Import(ctx, f.startImport(t, s.ID)))

			stored := f.sessions.get(s.ID)
			assert.Equal(t, migration.SessionStatusCompleted, stored.Status)
			assert.Equal(t, tt.imported, stored.ImportedRecords)
			assert.Equal(t, tt.skipped, stored.SkippedRecords)
			assert.Equal(t, tt.conflicts, stored.ConflictSkippedRecords)
			assert.Equal(t, tt.failed, stored.FailedRecords)

			deals := f.deals.all()
			require.Len(t, deals, 1)
			assert.Equal(t, tt.wantTitle, deals[0].Title)
			if tt.mode == migration.ConflictModeUpdate {
				assert.Equal(t, crm.DealStatusOpen, deals[0].Status, "update reopens a closed deal")
			}
		})
	}
}

func TestImport_ReorderRules(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	productID := uuid.New()

	s := f.createSession(t, migration.SessionOptions{}, migration.EntityReorderRule)
	f.upload(t, s.ID, migration.EntityReorderRule, 0,
		map[string]any{"Product ID": productID.String(), "Reorder Point": "10", "Max Quantity": "50", "Lead Time Days": 7},
		map[string]any{"product_id": uuid.NewString(), "reorder_point": "10", "max_quantity": "5"},
	)
	_, err := f.handlers.CompleteUpload(ctx, CompleteUploadCommand{TenantID: f.tenantID, SessionID: s.ID})
	require.NoError(t, err)
	require.NoError(t, f.pipeline.Validate(ctx, f.startValidation(t, s.ID)))

	bad := f.results.byStatus(migration.RecordStatusError)
	require.Len(t, bad, 1)
	assert.Equal(t, ErrCodeImportInconsistent, bad[0].Errors[0].Code)

	_, err = f.handlers.SkipRecord(ctx, SkipRecordCommand{TenantID: f.tenantID, SessionID: s.ID, ResultID: bad[0].ID})
	require.NoError(t, err)
	require.NoError(t, f.pipeline.Import(ctx, f.startImport(t, s.ID)))

	stored := f.sessions.get(s.ID)
	assert.Equal(t, migration.SessionStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.ImportedRecords)
	assert.Equal(t, 1, stored.SkippedRecords)

	rule, err := f.rules.FindByProduct(ctx, f.tenantID, productID, nil)
	require.NoError(t, err)
	assert.True(t, rule.ReorderPoint.Equal(decimal.NewFromInt(10)))
	assert.True(t, rule.MaxQuantity.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 7, rule.LeadTimeDays)
}
