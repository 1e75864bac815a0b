package migrationapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// errSessionStopped ends a job quietly: the session left the job's phase,
// usually because a user cancelled it.
var errSessionStopped = errors.New("migration session left the job's phase")

// chunkError ties a job failure to the chunk being processed, so a final
// failure can be recorded on the chunk as well.
type chunkError struct {
	chunk *migration.MigrationChunk
	err   error
}

func (e *chunkError) Error() string {
	return fmt.Sprintf("%s chunk %d: %v", e.chunk.EntityType, e.chunk.ChunkIndex, e.err)
}

func (e *chunkError) Unwrap() error { return e.err }

// Pipeline runs the validate and import jobs of migration sessions.
type Pipeline struct {
	deps   Deps
	config Config
	logger *zap.Logger
}

func NewPipeline(deps Deps, cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		deps:   deps.withDefaults(),
		config: cfg.withDefaults(),
		logger: log.Named("migration_pipeline"),
	}
}

// Register binds both job types on pool.
func (p *Pipeline) Register(pool *jobqueue.Pool) {
	pool.Register(JobTypeValidate, jobqueue.HandlerFunc(p.Validate))
	pool.Register(JobTypeImport, jobqueue.HandlerFunc(p.Import))
}

type phaseRunner func(ctx context.Context, job *jobqueue.JobRun, s *migration.MigrationSession) error

// run loads the session of job and hands it to fn when the job still owns
// the session's current phase. A failure on the last attempt fails the
// session and the chunk it happened on, timeouts included. Only a lost
// lease leaves the session to the job's next owner.
func (p *Pipeline) run(ctx context.Context, job *jobqueue.JobRun, phase migration.SessionStatus, fn phaseRunner) error {
	var payload SessionJobPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("session_id", payload.SessionID.String())))
	log := logger.L(ctx)

	session, err := p.deps.Sessions.FindByIDUnscoped(ctx, payload.SessionID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Warn("migration session is gone, dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	if !ownsPhase(session, job.ID, phase) {
		log.Info("job no longer owns the session, skipping",
			zap.String("session_status", string(session.Status)))
		return nil
	}

	err = fn(ctx, job, session)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errSessionStopped):
		log.Info("migration session stopped while the job ran")
		return nil
	case errors.Is(context.Cause(ctx), jobqueue.ErrJobNotRunning):
		log.Info("job lease lost, leaving the session", zap.Error(err))
		return err
	}
	if !job.CanRetry() {
		var ce *chunkError
		if errors.As(err, &ce) && !errors.Is(err, ErrChunkInFlight) {
			p.failChunk(ctx, ce.chunk, ce.err)
		}
		p.failSession(ctx, session.TenantID, session.ID, fmt.Sprintf("%s failed: %v", job.JobType, err))
	}
	return err
}

func ownsPhase(s *migration.MigrationSession, jobID uuid.UUID, phase migration.SessionStatus) bool {
	if s.Status != phase {
		return false
	}
	var owner *uuid.UUID
	switch phase {
	case migration.SessionStatusValidating:
		owner = s.ValidationJobID
	case migration.SessionStatusImporting:
		owner = s.ImportJobID
	}
	return owner != nil && *owner == jobID
}

// saveSession saves s outside the chunk transactions. A version conflict
// means someone else changed the session; when it left phase the job stops.
func (p *Pipeline) saveSession(ctx context.Context, s *migration.MigrationSession, phase migration.SessionStatus) error {
	err := p.deps.Sessions.Save(ctx, s)
	if !errors.Is(err, shared.ErrConcurrencyConflict) {
		return err
	}
	return p.checkPhase(ctx, s, phase, err)
}

func (p *Pipeline) checkPhase(ctx context.Context, s *migration.MigrationSession, phase migration.SessionStatus, cause error) error {
	current, err := p.deps.Sessions.FindByID(ctx, s.TenantID, s.ID)
	if err != nil {
		return err
	}
	if current.Status != phase {
		return errSessionStopped
	}
	return cause
}

// failChunk marks the stored copy of chunk FAILED with cause. Like
// failSession it detaches from the job's context.
func (p *Pipeline) failChunk(ctx context.Context, chunk *migration.MigrationChunk, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.L(ctx).With(zap.String("chunk_id", chunk.ID.String()))

	stored, err := p.deps.Chunks.FindByID(ctx, chunk.TenantID, chunk.ID)
	if err != nil {
		log.Error("failed to load chunk to mark it failed", zap.Error(err))
		return
	}
	if err := stored.MarkFailed(cause.Error()); err != nil {
		log.Warn("chunk not marked failed", zap.Error(err))
		return
	}
	if err := p.deps.Chunks.Save(ctx, stored); err != nil {
		log.Error("failed to save failed chunk", zap.Error(err))
	}
}

// failSession records reason on the session. It runs after the job's
// context may have been cancelled, so it detaches from it.
func (p *Pipeline) failSession(ctx context.Context, tenantID, sessionID uuid.UUID, reason string) {
	ctx = context.WithoutCancel(ctx)
	log := logger.L(ctx)

	s, err := p.deps.Sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		log.Error("failed to load session to mark it failed", zap.Error(err))
		return
	}
	if s.IsTerminal() {
		return
	}
	if err := s.Fail(reason); err != nil {
		log.Error("failed to mark session failed", zap.Error(err))
		return
	}
	if err := p.deps.Sessions.Save(ctx, s); err != nil {
		log.Error("failed to save failed session", zap.Error(err))
		return
	}
	log.Warn("migration session failed", zap.String("reason", reason))
	publish(ctx, p.deps.Events, s.PullDomainEvents())
}
