package migrationapp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	csvimport "github.com/stocker/backend/internal/infrastructure/import"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// CreateSessionCommand opens a migration session.
type CreateSessionCommand struct {
	TenantID           uuid.UUID
	UserID             *uuid.UUID
	Name               string   `validate:"required,max=200"`
	SourceSystem       string   `validate:"required"`
	EntityTypes        []string `validate:"required,min=1,dive,required"`
	SkipInvalidRecords bool
	ConflictMode       string `validate:"omitempty,oneof=skip update fail"`
	BatchSize          int    `validate:"gte=0,lte=5000"`
}

func (c CreateSessionCommand) GetTenantID() uuid.UUID { return c.TenantID }

// UploadChunkCommand stores one uploaded file. A JSON body is an array of
// records forming chunk ChunkIndex. A CSV body is split into chunks of the
// session's batch size, appended after the chunks already uploaded.
type UploadChunkCommand struct {
	TenantID    uuid.UUID
	SessionID   uuid.UUID `validate:"required"`
	EntityType  string    `validate:"required"`
	ChunkIndex  int       `validate:"gte=0"`
	TotalChunks int       `validate:"gte=0"`
	Data        []byte    `validate:"required"`
}

func (c UploadChunkCommand) GetTenantID() uuid.UUID { return c.TenantID }

// UploadChunkResult lists the chunks created by one upload.
type UploadChunkResult struct {
	Session SessionDTO `json:"session"`
	Chunks  []ChunkDTO `json:"chunks"`
}

type CompleteUploadCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (c CompleteUploadCommand) GetTenantID() uuid.UUID { return c.TenantID }

type StartValidationCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (c StartValidationCommand) GetTenantID() uuid.UUID { return c.TenantID }

type StartImportCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (c StartImportCommand) GetTenantID() uuid.UUID { return c.TenantID }

type CancelSessionCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
}

func (c CancelSessionCommand) GetTenantID() uuid.UUID { return c.TenantID }

// FixRecordCommand replaces the data of an ERROR or WARNING record. The
// data is checked against the entity schema before it is applied.
type FixRecordCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID      `validate:"required"`
	ResultID  uuid.UUID      `validate:"required"`
	Data      map[string]any `validate:"required,min=1"`
}

func (c FixRecordCommand) GetTenantID() uuid.UUID { return c.TenantID }

type SkipRecordCommand struct {
	TenantID  uuid.UUID
	SessionID uuid.UUID `validate:"required"`
	ResultID  uuid.UUID `validate:"required"`
}

func (c SkipRecordCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (h *Handlers) CreateSession(ctx context.Context, cmd CreateSessionCommand) (SessionDTO, error) {
	types := make([]migration.EntityType, len(cmd.EntityTypes))
	for i, et := range cmd.EntityTypes {
		types[i] = migration.EntityType(strings.ToLower(strings.TrimSpace(et)))
	}
	opts := migration.SessionOptions{
		SkipInvalidRecords: cmd.SkipInvalidRecords,
		ConflictMode:       migration.ConflictMode(cmd.ConflictMode),
		BatchSize:          cmd.BatchSize,
	}
	session, err := migration.NewMigrationSession(cmd.TenantID, cmd.Name,
		migration.SourceSystem(strings.ToLower(cmd.SourceSystem)), types, opts)
	if err != nil {
		return SessionDTO{}, err
	}
	if cmd.UserID != nil {
		session.SetCreatedBy(*cmd.UserID)
	}
	if err := h.deps.Sessions.Save(ctx, session); err != nil {
		return SessionDTO{}, err
	}
	logger.L(ctx).Info("migration session created",
		zap.String("session_id", session.ID.String()),
		zap.String("source_system", string(session.SourceSystem)),
	)
	return ToSessionDTO(session), nil
}

type chunkPart struct {
	index   int
	records []map[string]any
}

func (h *Handlers) UploadChunk(ctx context.Context, cmd UploadChunkCommand) (UploadChunkResult, error) {
	if int64(len(cmd.Data)) > h.config.MaxUploadBytes {
		return UploadChunkResult{}, shared.NewDomainError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("Upload exceeds %d bytes", h.config.MaxUploadBytes))
	}
	session, err := h.deps.Sessions.FindByID(ctx, cmd.TenantID, cmd.SessionID)
	if err != nil {
		return UploadChunkResult{}, err
	}
	entityType := migration.EntityType(strings.ToLower(cmd.EntityType))
	if !session.Supports(entityType) {
		return UploadChunkResult{}, shared.NewDomainError("INVALID_ENTITY_TYPE",
			fmt.Sprintf("Session does not migrate %s records", cmd.EntityType))
	}

	parts, totalChunks, err := h.splitUpload(ctx, session, entityType, cmd)
	if err != nil {
		return UploadChunkResult{}, err
	}

	chunks := make([]*migration.MigrationChunk, 0, len(parts))
	var stored []string
	cleanup := func() {
		ctx := context.WithoutCancel(ctx)
		for _, key := range stored {
			if err := h.deps.Objects.Delete(ctx, key); err != nil {
				logger.L(ctx).Warn("failed to remove orphaned chunk payload", zap.String("key", key), zap.Error(err))
			}
		}
	}

	for _, part := range parts {
		exists, err := h.deps.Chunks.ExistsByIndex(ctx, session.ID, entityType, part.index)
		if err != nil {
			cleanup()
			return UploadChunkResult{}, err
		}
		if exists {
			cleanup()
			return UploadChunkResult{}, shared.NewDomainErrorWithCause(shared.CodeAlreadyExists,
				fmt.Sprintf("Chunk %d of %s was already uploaded", part.index, entityType), shared.ErrAlreadyExists)
		}

		payload, err := json.Marshal(part.records)
		if err != nil {
			cleanup()
			return UploadChunkResult{}, fmt.Errorf("encode chunk payload: %w", err)
		}
		sum := sha256.Sum256(payload)
		key := storage.ChunkKey(session.TenantID.String(), session.ID.String(), string(entityType), part.index)

		chunk, err := migration.NewMigrationChunk(session, entityType, part.index, totalChunks,
			len(part.records), key, hex.EncodeToString(sum[:]))
		if err != nil {
			cleanup()
			return UploadChunkResult{}, err
		}
		if err := session.RegisterChunk(entityType, len(part.records)); err != nil {
			cleanup()
			return UploadChunkResult{}, err
		}
		if err := h.deps.Objects.Put(ctx, key, payload, storage.ContentTypeJSON); err != nil {
			cleanup()
			return UploadChunkResult{}, fmt.Errorf("store chunk payload: %w", err)
		}
		stored = append(stored, key)
		chunks = append(chunks, chunk)
	}

	err = h.deps.Tx.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, c := range chunks {
			if err := repos.Chunks().Save(ctx, c); err != nil {
				return err
			}
		}
		return repos.Sessions().Save(ctx, session)
	})
	if err != nil {
		cleanup()
		return UploadChunkResult{}, err
	}

	result := UploadChunkResult{Session: ToSessionDTO(session), Chunks: make([]ChunkDTO, len(chunks))}
	records := 0
	for i, c := range chunks {
		result.Chunks[i] = ToChunkDTO(c)
		records += c.RecordCount
	}
	logger.L(ctx).Info("migration chunks uploaded",
		zap.String("session_id", session.ID.String()),
		zap.String("entity_type", string(entityType)),
		zap.Int("chunks", len(chunks)),
		zap.Int("records", records),
	)
	return result, nil
}

// splitUpload decodes the upload into chunk parts and reports the total
// chunk count to record on them. JSON chunks carry the client's count, 0
// when it sent none; a CSV split knows the entity's count once appended.
func (h *Handlers) splitUpload(
	ctx context.Context,
	session *migration.MigrationSession,
	entityType migration.EntityType,
	cmd UploadChunkCommand,
) ([]chunkPart, int, error) {
	contentType, err := storage.SniffUpload(cmd.Data, storage.ContentTypeJSON, storage.ContentTypeCSV)
	if err != nil {
		return nil, 0, shared.NewDomainErrorWithCause("INVALID_FILE", "Upload must be a JSON array or a CSV file", err)
	}

	if contentType == storage.ContentTypeJSON {
		records, err := decodeJSONRecords(cmd.Data)
		if err != nil {
			return nil, 0, err
		}
		if len(records) > h.config.MaxChunkRecords {
			return nil, 0, shared.NewDomainError("CHUNK_TOO_LARGE",
				fmt.Sprintf("A chunk cannot hold more than %d records", h.config.MaxChunkRecords))
		}
		return []chunkPart{{index: cmd.ChunkIndex, records: records}}, cmd.TotalChunks, nil
	}

	records, err := csvimport.ParseRecords(cmd.Data)
	if err != nil {
		return nil, 0, shared.NewDomainErrorWithCause("INVALID_FILE", fmt.Sprintf("Invalid CSV file: %v", err), err)
	}
	existing, err := h.deps.Chunks.FindBySession(ctx, session.TenantID, session.ID)
	if err != nil {
		return nil, 0, err
	}
	next := 0
	for _, c := range existing {
		if c.EntityType == entityType && c.ChunkIndex >= next {
			next = c.ChunkIndex + 1
		}
	}
	split := csvimport.SplitRecords(records, session.Options.BatchSize)
	parts := make([]chunkPart, len(split))
	for i, recs := range split {
		parts[i] = chunkPart{index: next + i, records: recs}
	}
	return parts, next + len(split), nil
}

func decodeJSONRecords(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_FILE", "Upload must be a JSON array of objects", err)
	}
	if len(records) == 0 {
		return nil, shared.NewDomainError("EMPTY_CHUNK", "Chunk must contain at least one record")
	}
	for i, r := range records {
		if r == nil {
			return nil, shared.NewDomainError("INVALID_FILE", fmt.Sprintf("Record %d is not an object", i))
		}
	}
	return records, nil
}

func (h *Handlers) CompleteUpload(ctx context.Context, cmd CompleteUploadCommand) (SessionDTO, error) {
	return h.mutateSession(ctx, cmd.TenantID, cmd.SessionID, func(_ TransactionalRepositories, s *migration.MigrationSession) error {
		return s.CompleteUpload()
	})
}

// StartValidation schedules the validation job in the same transaction as
// the session change, so a worker never sees the job before the session
// is VALIDATING.
func (h *Handlers) StartValidation(ctx context.Context, cmd StartValidationCommand) (SessionDTO, error) {
	return h.mutateSession(ctx, cmd.TenantID, cmd.SessionID, func(repos TransactionalRepositories, s *migration.MigrationSession) error {
		job, err := h.enqueue(ctx, repos, s, JobTypeValidate)
		if err != nil {
			return err
		}
		return s.StartValidation(job.ID)
	})
}

func (h *Handlers) StartImport(ctx context.Context, cmd StartImportCommand) (SessionDTO, error) {
	return h.mutateSession(ctx, cmd.TenantID, cmd.SessionID, func(repos TransactionalRepositories, s *migration.MigrationSession) error {
		job, err := h.enqueue(ctx, repos, s, JobTypeImport)
		if err != nil {
			return err
		}
		return s.StartImport(job.ID)
	})
}

// CancelSession cancels the session and the job working on it. The worker
// notices through its lost lease.
func (h *Handlers) CancelSession(ctx context.Context, cmd CancelSessionCommand) (SessionDTO, error) {
	return h.mutateSession(ctx, cmd.TenantID, cmd.SessionID, func(repos TransactionalRepositories, s *migration.MigrationSession) error {
		var jobID *uuid.UUID
		switch s.Status {
		case migration.SessionStatusValidating:
			jobID = s.ValidationJobID
		case migration.SessionStatusImporting:
			jobID = s.ImportJobID
		}
		if err := s.Cancel(); err != nil {
			return err
		}
		if jobID != nil {
			if _, err := repos.Jobs().Cancel(ctx, *jobID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Handlers) FixRecord(ctx context.Context, cmd FixRecordCommand) (ValidationResultDTO, error) {
	return h.resolveRecord(ctx, cmd.TenantID, cmd.SessionID, cmd.ResultID, func(r *migration.MigrationValidationResult) error {
		schema, err := h.deps.Schemas.For(r.EntityType)
		if err != nil {
			return err
		}
		out := schema.Check(cmd.Data, nil, "")
		if len(out.Errors) > 0 {
			msgs := make([]string, len(out.Errors))
			for i, e := range out.Errors {
				msgs[i] = e.Field + ": " + e.Message
			}
			return shared.NewDomainError(shared.CodeValidation,
				"Fixed data is still invalid: "+strings.Join(msgs, "; "))
		}
		return r.ApplyFix(out.Data)
	})
}

func (h *Handlers) SkipRecord(ctx context.Context, cmd SkipRecordCommand) (ValidationResultDTO, error) {
	return h.resolveRecord(ctx, cmd.TenantID, cmd.SessionID, cmd.ResultID, func(r *migration.MigrationValidationResult) error {
		return r.Skip()
	})
}

// resolveRecord applies a user resolution to one result and moves it
// between the session's counters.
func (h *Handlers) resolveRecord(
	ctx context.Context,
	tenantID, sessionID, resultID uuid.UUID,
	apply func(r *migration.MigrationValidationResult) error,
) (ValidationResultDTO, error) {
	var dto ValidationResultDTO
	err := h.deps.Tx.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.Sessions().FindByID(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		result, err := repos.Results().FindByID(ctx, tenantID, resultID)
		if err != nil {
			return err
		}
		if result.SessionID != session.ID {
			return shared.ErrNotFound
		}
		from := result.Status
		if err := apply(result); err != nil {
			return err
		}
		if err := session.ResolveRecord(from, result.Status); err != nil {
			return err
		}
		if err := repos.Results().Save(ctx, result); err != nil {
			return err
		}
		if err := repos.Sessions().Save(ctx, session); err != nil {
			return err
		}
		dto = ToValidationResultDTO(result)
		return nil
	})
	return dto, err
}

// mutateSession loads a session, applies fn and saves it in one
// transaction, then publishes the session's events.
func (h *Handlers) mutateSession(
	ctx context.Context,
	tenantID, sessionID uuid.UUID,
	fn func(repos TransactionalRepositories, s *migration.MigrationSession) error,
) (SessionDTO, error) {
	var session *migration.MigrationSession
	err := h.deps.Tx.Execute(ctx, func(repos TransactionalRepositories) error {
		s, err := repos.Sessions().FindByID(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if err := fn(repos, s); err != nil {
			return err
		}
		if err := repos.Sessions().Save(ctx, s); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return SessionDTO{}, err
	}
	publish(ctx, h.deps.Events, session.PullDomainEvents())
	return ToSessionDTO(session), nil
}

func (h *Handlers) enqueue(ctx context.Context, repos TransactionalRepositories, s *migration.MigrationSession, jobType string) (*jobqueue.JobRun, error) {
	job, err := repos.Jobs().Enqueue(ctx, jobqueue.EnqueueRequest{
		TenantID:    s.TenantID,
		JobType:     jobType,
		Payload:     SessionJobPayload{SessionID: s.ID},
		MaxAttempts: h.config.JobMaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("migration job enqueued",
		zap.String("session_id", s.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", jobType),
	)
	return job, nil
}
