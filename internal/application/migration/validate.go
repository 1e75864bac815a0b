package migrationapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stocker/backend/internal/domain/migration"
	csvimport "github.com/stocker/backend/internal/infrastructure/import"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type recordCounts struct {
	valid, warning, errors int
}

func (c *recordCounts) add(status migration.RecordStatus) {
	switch status {
	case migration.RecordStatusValid:
		c.valid++
	case migration.RecordStatusWarning:
		c.warning++
	default:
		c.errors++
	}
}

// Validate handles migration.validate jobs. Chunks are validated in
// parallel; unique columns are checked across the whole session.
func (p *Pipeline) Validate(ctx context.Context, job *jobqueue.JobRun) error {
	return p.run(ctx, job, migration.SessionStatusValidating, p.validateSession)
}

func (p *Pipeline) validateSession(ctx context.Context, _ *jobqueue.JobRun, session *migration.MigrationSession) error {
	start := time.Now()
	log := logger.L(ctx)

	// A retried attempt validates every chunk again.
	if session.ValidRecords+session.WarningRecords+session.ErrorRecords > 0 {
		if err := session.ResetValidationProgress(); err != nil {
			return err
		}
		if err := p.saveSession(ctx, session, migration.SessionStatusValidating); err != nil {
			return err
		}
	}

	chunks, err := p.deps.Chunks.FindBySession(ctx, session.TenantID, session.ID)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		totals recordCounts
		uniq   = csvimport.NewUniqueIndex()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.ValidationConcurrency)
	for i := range chunks {
		chunk := &chunks[i]
		g.Go(func() error {
			counts, err := p.validateChunk(gctx, chunk, uniq)
			if err != nil {
				return fmt.Errorf("validate %w", &chunkError{chunk: chunk, err: err})
			}

			mu.Lock()
			defer mu.Unlock()
			if err := session.RecordValidationProgress(counts.valid, counts.warning, counts.errors); err != nil {
				return err
			}
			totals.valid += counts.valid
			totals.warning += counts.warning
			totals.errors += counts.errors
			return p.saveSession(gctx, session, migration.SessionStatusValidating)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := session.CompleteValidation(totals.valid, totals.warning, totals.errors); err != nil {
		return err
	}
	if err := p.saveSession(ctx, session, migration.SessionStatusValidating); err != nil {
		return err
	}
	log.Info("migration validation completed",
		zap.Int("chunks", len(chunks)),
		zap.Int("valid", totals.valid),
		zap.Int("warning", totals.warning),
		zap.Int("error", totals.errors),
		zap.Duration("duration", time.Since(start)),
	)
	publish(ctx, p.deps.Events, session.PullDomainEvents())
	return nil
}

// validateChunk checks every record of chunk and replaces the chunk's
// results in one transaction.
func (p *Pipeline) validateChunk(ctx context.Context, chunk *migration.MigrationChunk, uniq *csvimport.UniqueIndex) (recordCounts, error) {
	var counts recordCounts
	schema, err := p.deps.Schemas.For(chunk.EntityType)
	if err != nil {
		return counts, err
	}
	records, err := p.loadChunk(ctx, chunk)
	if err != nil {
		return counts, err
	}

	results := make([]*migration.MigrationValidationResult, len(records))
	for i, rec := range records {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return counts, err
			}
		}
		owner := fmt.Sprintf("%s chunk %d record %d", chunk.EntityType, chunk.ChunkIndex, i+1)
		out := schema.Check(rec, uniq, owner)
		r := migration.NewValidationResult(chunk, i, rec, out.Data, out.Errors, out.Warnings)
		counts.add(r.Status)
		results[i] = r
	}

	err = p.deps.Tx.Execute(ctx, func(repos TransactionalRepositories) error {
		if chunk.Status == migration.ChunkStatusValidated {
			if err := chunk.ResetValidation(); err != nil {
				return err
			}
		}
		if err := repos.Results().DeleteByChunk(ctx, chunk.TenantID, chunk.ID); err != nil {
			return err
		}
		if err := repos.Results().SaveBatch(ctx, results, p.config.ResultBatchSize); err != nil {
			return err
		}
		if err := chunk.MarkValidated(counts.valid, counts.warning, counts.errors); err != nil {
			return err
		}
		return repos.Chunks().Save(ctx, chunk)
	})
	if err != nil {
		return counts, err
	}
	logger.L(ctx).Debug("migration chunk validated",
		zap.String("chunk_id", chunk.ID.String()),
		zap.Int("records", len(records)),
		zap.Int("errors", counts.errors),
	)
	return counts, nil
}

// loadChunk reads the stored payload of chunk. Numbers stay json.Number
// so the schema sees them as written.
func (p *Pipeline) loadChunk(ctx context.Context, chunk *migration.MigrationChunk) ([]map[string]any, error) {
	data, err := p.deps.Objects.Get(ctx, chunk.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read chunk payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode chunk payload: %w", err)
	}
	if len(records) != chunk.RecordCount {
		return nil, fmt.Errorf("chunk payload holds %d records, expected %d", len(records), chunk.RecordCount)
	}
	return records, nil
}
