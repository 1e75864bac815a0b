package persistence

import (
	"context"

	appmig "github.com/stocker/backend/internal/application/migration"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"gorm.io/gorm"
)

// GormTransactionScope runs a unit of work in one database transaction.
// The callback's error rolls the transaction back.
// Jobs enqueued inside the callback land in the same transaction.
type GormTransactionScope struct {
	db      *gorm.DB
	jobOpts []jobqueue.StoreOption
}

func NewGormTransactionScope(db *gorm.DB, jobOpts ...jobqueue.StoreOption) *GormTransactionScope {
	return &GormTransactionScope{db: db, jobOpts: jobOpts}
}

func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appmig.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, jobOpts: s.jobOpts})
	})
}

type gormTransactionalRepositories struct {
	tx      *gorm.DB
	jobOpts []jobqueue.StoreOption
}

func (r *gormTransactionalRepositories) Sessions() migration.SessionRepository {
	return NewGormSessionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Chunks() migration.ChunkRepository {
	return NewGormChunkRepository(r.tx)
}

func (r *gormTransactionalRepositories) Results() migration.ValidationResultRepository {
	return NewGormValidationResultRepository(r.tx)
}

func (r *gormTransactionalRepositories) Deals() crm.DealRepository {
	return NewGormDealRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReorderRules() inventory.ReorderRuleRepository {
	return NewGormReorderRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Jobs() appmig.JobQueue {
	return jobqueue.NewStore(r.tx, r.jobOpts...)
}

var (
	_ appmig.TransactionScope          = (*GormTransactionScope)(nil)
	_ appmig.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
