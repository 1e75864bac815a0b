// Package migrationapp runs the data-migration pipeline: commands and
// queries dispatched through the mediator, and the background jobs that
// validate and import uploaded chunks.
package migrationapp

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
)

// Job types handled by this package.
const (
	JobTypeValidate = "migration.validate"
	JobTypeImport   = "migration.import"
)

// SessionJobPayload is the payload of both migration jobs.
type SessionJobPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// JobQueue schedules and stops background jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, req jobqueue.EnqueueRequest) (*jobqueue.JobRun, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// TransactionScope runs fn in one database transaction. An error from fn
// rolls the transaction back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to the current transaction. Jobs
// enqueued through Jobs commit or roll back together with the session
// change that scheduled them.
type TransactionalRepositories interface {
	Sessions() migration.SessionRepository
	Chunks() migration.ChunkRepository
	Results() migration.ValidationResultRepository
	Deals() crm.DealRepository
	ReorderRules() inventory.ReorderRuleRepository
	Jobs() JobQueue
}

// NoOpTransactionScope hands out plain repositories without a transaction.
// Tests and single-statement callers use it.
type NoOpTransactionScope struct {
	Repos Repositories
}

// Repositories is a plain implementation of TransactionalRepositories.
type Repositories struct {
	SessionRepo     migration.SessionRepository
	ChunkRepo       migration.ChunkRepository
	ResultRepo      migration.ValidationResultRepository
	DealRepo        crm.DealRepository
	ReorderRuleRepo inventory.ReorderRuleRepository
	JobQueue        JobQueue
}

func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{Repos: repos}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}

func (r Repositories) Sessions() migration.SessionRepository         { return r.SessionRepo }
func (r Repositories) Chunks() migration.ChunkRepository             { return r.ChunkRepo }
func (r Repositories) Results() migration.ValidationResultRepository { return r.ResultRepo }
func (r Repositories) Deals() crm.DealRepository                     { return r.DealRepo }
func (r Repositories) ReorderRules() inventory.ReorderRuleRepository { return r.ReorderRuleRepo }
func (r Repositories) Jobs() JobQueue                                { return r.JobQueue }

var _ TransactionalRepositories = Repositories{}
