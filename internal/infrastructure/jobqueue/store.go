package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxRetryDelay = time.Hour

// Store persists job runs in the job_runs table.
type Store struct {
	db        *gorm.DB
	baseDelay time.Duration
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetryBaseDelay sets the first retry delay. Later retries double it.
func WithRetryBaseDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.baseDelay = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:        db,
		baseDelay: 10 * time.Second,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue inserts a queued job.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) (*JobRun, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", req.JobType, err)
	}
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = DefaultMaxAttempts
	}
	now := s.now()
	runAfter := req.RunAfter
	if runAfter.IsZero() {
		runAfter = now
	}

	job := &JobRun{
		ID:          uuid.New(),
		TenantID:    req.TenantID,
		JobType:     req.JobType,
		Payload:     datatypes.JSON(payload),
		Status:      StatusQueued,
		MaxAttempts: req.MaxAttempts,
		RunAfter:    runAfter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", req.JobType, err)
	}
	return job, nil
}

// ClaimNext locks the oldest due queued job, marks it running and counts
// the attempt. It returns nil when nothing is due. Only job types in
// types are claimed; an empty list claims any type.
func (s *Store) ClaimNext(ctx context.Context, types []string) (*JobRun, error) {
	now := s.now()
	var claimed *JobRun
	err := s.db.WithContext(ctx).Unscoped().Transaction(func(tx *gorm.DB) error {
		var job JobRun
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND run_after <= ?", StatusQueued, now)
		if len(types) > 0 {
			q = q.Where("job_type IN ?", types)
		}
		err := q.Order("run_after ASC").First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = tx.Model(&JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":       StatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if err != nil {
			return err
		}
		job.Status = StatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return claimed, nil
}

// Heartbeat refreshes a running job. ErrJobNotRunning tells the worker the
// job was cancelled or requeued underneath it.
func (s *Store) Heartbeat(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	return s.updateRunning(ctx, id, map[string]any{
		"heartbeat_at": now,
		"updated_at":   now,
	})
}

func (s *Store) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return s.updateRunning(ctx, id, map[string]any{
		"status":     StatusSucceeded,
		"last_error": "",
		"updated_at": s.now(),
	})
}

// MarkFailed records a failed attempt. The job is requeued with
// exponential backoff while attempts remain, otherwise it fails for good.
// It returns the resulting status.
func (s *Store) MarkFailed(ctx context.Context, job *JobRun, cause error) (Status, error) {
	now := s.now()
	updates := map[string]any{
		"last_error": errorText(cause),
		"updated_at": now,
		"locked_at":  nil,
	}
	status := StatusFailed
	if job.CanRetry() {
		status = StatusQueued
		updates["run_after"] = now.Add(s.RetryDelay(job.Attempts))
	}
	updates["status"] = status
	if err := s.updateRunning(ctx, job.ID, updates); err != nil {
		return "", err
	}
	job.Status = status
	return status, nil
}

// RetryDelay is the backoff before the attempt after attempt n.
func (s *Store) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(s.baseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(maxRetryDelay) {
		return maxRetryDelay
	}
	return time.Duration(d)
}

// Cancel stops a queued or running job. Cancelling a finished job is a
// no-op that reports false.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&JobRun{}).
		Where("id = ? AND status IN ?", id, []Status{StatusQueued, StatusRunning}).
		Updates(map[string]any{
			"status":     StatusCancelled,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("cancel job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*JobRun, error) {
	var job JobRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// RequeueStale returns running jobs whose worker stopped heartbeating to
// the queue. It reports how many were requeued.
func (s *Store) RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Unscoped().
		Model(&JobRun{}).
		Where("status = ? AND heartbeat_at < ?", StatusRunning, now.Add(-staleAfter)).
		Updates(map[string]any{
			"status":     StatusQueued,
			"locked_at":  nil,
			"run_after":  now,
			"last_error": "worker heartbeat lost",
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) updateRunning(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := s.db.WithContext(ctx).Unscoped().
		Model(&JobRun{}).
		Where("id = ? AND status = ?", id, StatusRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotRunning
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	return msg
}
