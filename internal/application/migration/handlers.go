package migrationapp

import (
	"context"
	"errors"
	"time"

	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Config bounds uploads and tunes the background jobs.
type Config struct {
	MaxChunkRecords       int
	MaxUploadBytes        int64
	JobMaxAttempts        int
	ValidationConcurrency int
	ResultBatchSize       int
	ImportIdempotencyTTL  time.Duration
}

// ConfigFrom builds a Config from the loaded application configuration.
func ConfigFrom(m config.MigrationConfig, j config.JobsConfig) Config {
	return Config{
		MaxChunkRecords:       m.MaxChunkRecords,
		MaxUploadBytes:        m.MaxUploadBytes,
		JobMaxAttempts:        j.MaxAttempts,
		ValidationConcurrency: m.ValidationConcurrency,
		ResultBatchSize:       m.ResultBatchSize,
		ImportIdempotencyTTL:  m.ImportIdempotencyTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxChunkRecords <= 0 {
		c.MaxChunkRecords = migration.MaxBatchSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.ValidationConcurrency <= 0 {
		c.ValidationConcurrency = 4
	}
	if c.ResultBatchSize <= 0 {
		c.ResultBatchSize = 500
	}
	if c.ImportIdempotencyTTL <= 0 {
		c.ImportIdempotencyTTL = time.Hour
	}
	return c
}

// Deps are the collaborators of the command handlers and the jobs.
type Deps struct {
	Tx          TransactionScope
	Sessions    migration.SessionRepository
	Chunks      migration.ChunkRepository
	Results     migration.ValidationResultRepository
	Objects     storage.ObjectStore
	Idempotency shared.IdempotencyStore
	Events      shared.EventPublisher
	// Schemas and Importers default to every supported entity type.
	Schemas   Schemas
	Importers map[migration.EntityType]RecordImporter
}

func (d Deps) withDefaults() Deps {
	if d.Schemas == nil {
		d.Schemas = DefaultSchemas()
	}
	if d.Importers == nil {
		d.Importers = DefaultImporters()
	}
	return d
}

// Handlers serves the migration commands and queries.
type Handlers struct {
	deps   Deps
	config Config
	logger *zap.Logger
}

func NewHandlers(deps Deps, cfg Config, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		deps:   deps.withDefaults(),
		config: cfg.withDefaults(),
		logger: log.Named("migration"),
	}
}

// Register binds every migration request type on m.
func (h *Handlers) Register(m *mediator.Mediator) error {
	return errors.Join(
		mediator.Register(m, mediator.HandlerFunc[CreateSessionCommand, SessionDTO](h.CreateSession)),
		mediator.Register(m, mediator.HandlerFunc[UploadChunkCommand, UploadChunkResult](h.UploadChunk)),
		mediator.Register(m, mediator.HandlerFunc[CompleteUploadCommand, SessionDTO](h.CompleteUpload)),
		mediator.Register(m, mediator.HandlerFunc[StartValidationCommand, SessionDTO](h.StartValidation)),
		mediator.Register(m, mediator.HandlerFunc[StartImportCommand, SessionDTO](h.StartImport)),
		mediator.Register(m, mediator.HandlerFunc[CancelSessionCommand, SessionDTO](h.CancelSession)),
		mediator.Register(m, mediator.HandlerFunc[FixRecordCommand, ValidationResultDTO](h.FixRecord)),
		mediator.Register(m, mediator.HandlerFunc[SkipRecordCommand, ValidationResultDTO](h.SkipRecord)),
		mediator.Register(m, mediator.HandlerFunc[GetSessionQuery, SessionDTO](h.GetSession)),
		mediator.Register(m, mediator.HandlerFunc[ListSessionsQuery, shared.Paginated[SessionDTO]](h.ListSessions)),
		mediator.Register(m, mediator.HandlerFunc[ListChunksQuery, []ChunkDTO](h.ListChunks)),
		mediator.Register(m, mediator.HandlerFunc[ListValidationResultsQuery, shared.Paginated[ValidationResultDTO]](h.ListValidationResults)),
		mediator.Register(m, mediator.HandlerFunc[GetValidationSummaryQuery, ValidationSummaryDTO](h.GetValidationSummary)),
	)
}

// publish sends events after their transaction committed. Subscribers
// failing never undoes the command.
func publish(ctx context.Context, pub shared.EventPublisher, events []shared.DomainEvent) {
	if pub == nil || len(events) == 0 {
		return
	}
	if err := pub.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish migration events", zap.Error(err), zap.Int("count", len(events)))
	}
}
