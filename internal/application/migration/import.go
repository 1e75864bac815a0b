package migrationapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrChunkInFlight is returned when another attempt holds a chunk's import
// claim. The job is retried once the claim is released or expires.
var ErrChunkInFlight = errors.New("chunk import is held by another attempt")

type importCounts struct {
	imported, skipped, conflicts, failed int
}

// Import handles migration.import jobs. Chunks are imported in order, one
// transaction each, and the session is checked between chunks.
func (p *Pipeline) Import(ctx context.Context, job *jobqueue.JobRun) error {
	return p.run(ctx, job, migration.SessionStatusImporting, p.importSession)
}

func (p *Pipeline) importSession(ctx context.Context, _ *jobqueue.JobRun, session *migration.MigrationSession) error {
	start := time.Now()
	log := logger.L(ctx)

	chunks, err := p.deps.Chunks.FindBySession(ctx, session.TenantID, session.ID)
	if err != nil {
		return err
	}

	var totals importCounts
	for i := range chunks {
		chunk := &chunks[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		// Pick up a cancel and the version written by the previous chunk.
		current, err := p.deps.Sessions.FindByID(ctx, session.TenantID, session.ID)
		if err != nil {
			return err
		}
		if current.Status != migration.SessionStatusImporting {
			return errSessionStopped
		}
		session = current

		if chunk.Status == migration.ChunkStatusImported {
			continue
		}
		counts, events, err := p.importChunkOnce(ctx, session, chunk)
		if err != nil {
			return fmt.Errorf("import %w", &chunkError{chunk: chunk, err: err})
		}
		totals.imported += counts.imported
		totals.skipped += counts.skipped
		totals.conflicts += counts.conflicts
		totals.failed += counts.failed
		publish(ctx, p.deps.Events, events)
	}

	if err := session.CompleteImport(); err != nil {
		return err
	}
	if err := p.saveSession(ctx, session, migration.SessionStatusImporting); err != nil {
		return err
	}
	log.Info("migration import completed",
		zap.Int("chunks", len(chunks)),
		zap.Int("imported", totals.imported),
		zap.Int("skipped", totals.skipped),
		zap.Int("conflicts", totals.conflicts),
		zap.Int("failed", totals.failed),
		zap.Duration("duration", time.Since(start)),
	)
	publish(ctx, p.deps.Events, session.PullDomainEvents())
	return nil
}

func chunkImportKey(chunk *migration.MigrationChunk) string {
	return fmt.Sprintf("migration:%s:chunk:%s:import", chunk.SessionID, chunk.ID)
}

// importChunkOnce claims the chunk in the idempotency store around the
// import. A failed import releases the claim so a retry can take it.
func (p *Pipeline) importChunkOnce(ctx context.Context, session *migration.MigrationSession, chunk *migration.MigrationChunk) (importCounts, []shared.DomainEvent, error) {
	key := chunkImportKey(chunk)
	if p.deps.Idempotency != nil {
		claimed, err := p.deps.Idempotency.MarkProcessed(ctx, key, p.config.ImportIdempotencyTTL)
		if err != nil {
			return importCounts{}, nil, fmt.Errorf("claim chunk: %w", err)
		}
		if !claimed {
			return importCounts{}, nil, p.unclaimedChunk(ctx, chunk)
		}
	}

	counts, events, err := p.importChunk(ctx, session, chunk)
	if err != nil && p.deps.Idempotency != nil {
		if rErr := p.deps.Idempotency.Release(context.WithoutCancel(ctx), key); rErr != nil {
			logger.L(ctx).Warn("failed to release chunk claim", zap.String("key", key), zap.Error(rErr))
		}
	}
	return counts, events, err
}

// unclaimedChunk decides what a lost claim means: the chunk is either done
// already or another attempt is still on it.
func (p *Pipeline) unclaimedChunk(ctx context.Context, chunk *migration.MigrationChunk) error {
	stored, err := p.deps.Chunks.FindByID(ctx, chunk.TenantID, chunk.ID)
	if err != nil {
		return err
	}
	if stored.Status == migration.ChunkStatusImported {
		logger.L(ctx).Info("chunk already imported, skipping", zap.String("chunk_id", chunk.ID.String()))
		return nil
	}
	return ErrChunkInFlight
}

// importChunk writes the importable results of chunk and advances the
// chunk and session counters in one transaction. ERROR records of a
// session that skips invalid records count as skipped.
func (p *Pipeline) importChunk(ctx context.Context, session *migration.MigrationSession, chunk *migration.MigrationChunk) (importCounts, []shared.DomainEvent, error) {
	var counts importCounts
	importer, ok := p.deps.Importers[chunk.EntityType]
	if !ok {
		return counts, nil, fmt.Errorf("no importer for entity type %s", chunk.EntityType)
	}
	log := logger.L(ctx).With(zap.String("chunk_id", chunk.ID.String()))

	var target *ImportTarget
	err := p.deps.Tx.Execute(ctx, func(repos TransactionalRepositories) error {
		counts = importCounts{}
		target = &ImportTarget{
			Repos:    repos,
			TenantID: session.TenantID,
			UserID:   session.CreatedBy,
			Mode:     session.Options.ConflictMode,
		}
		results, err := repos.Results().FindByChunk(ctx, chunk.TenantID, chunk.ID)
		if err != nil {
			return err
		}
		for i := range results {
			r := &results[i]
			if !r.IsImportable() {
				if r.Status == migration.RecordStatusError {
					counts.skipped++
				}
				continue
			}
			outcome, err := importer.Import(ctx, target, r.TransformedData)
			switch {
			case err == nil && outcome == OutcomeSkipped:
				counts.conflicts++
			case err == nil:
				counts.imported++
			case isRecordError(err):
				counts.failed++
				log.Debug("record import failed",
					zap.Int("record_index", r.RecordIndex),
					zap.String("code", shared.CodeOf(err)),
					zap.Error(err),
				)
			default:
				return fmt.Errorf("record %d: %w", r.RecordIndex, err)
			}
		}

		if err := chunk.MarkImported(counts.imported, counts.failed); err != nil {
			return err
		}
		if err := repos.Chunks().Save(ctx, chunk); err != nil {
			return err
		}
		if err := session.RecordImportProgress(migration.ImportProgress{
			Imported:  counts.imported,
			Skipped:   counts.skipped,
			Conflicts: counts.conflicts,
			Failed:    counts.failed,
		}); err != nil {
			return err
		}
		return repos.Sessions().Save(ctx, session)
	})
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		err = p.checkPhase(ctx, session, migration.SessionStatusImporting, err)
	}
	if err != nil {
		return counts, nil, err
	}
	log.Info("migration chunk imported",
		zap.Int("imported", counts.imported),
		zap.Int("skipped", counts.skipped),
		zap.Int("conflicts", counts.conflicts),
		zap.Int("failed", counts.failed),
	)
	return counts, target.Events(), nil
}
