// Package jobqueue is a PostgreSQL-backed background job queue. Workers
// claim rows with FOR UPDATE SKIP LOCKED, so any number of server
// instances can share one queue.
package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a job run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the job will never run again.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

const DefaultMaxAttempts = 3

// JobRun is one persisted unit of background work.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	JobType     string         `gorm:"type:varchar(100);not null" json:"job_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status      Status         `gorm:"type:varchar(20);not null" json:"status"`
	Attempts    int            `gorm:"not null" json:"attempts"`
	MaxAttempts int            `gorm:"not null" json:"max_attempts"`
	RunAfter    time.Time      `gorm:"type:timestamptz;not null" json:"run_after"`
	LockedAt    *time.Time     `gorm:"type:timestamptz" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"type:timestamptz" json:"heartbeat_at,omitempty"`
	LastError   string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;not null" json:"updated_at"`
}

func (JobRun) TableName() string {
	return "job_runs"
}

// DecodePayload unmarshals the job payload into dst.
func (j *JobRun) DecodePayload(dst any) error {
	if err := json.Unmarshal(j.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.JobType, err)
	}
	return nil
}

// CanRetry reports whether a failed attempt leaves room for another.
func (j *JobRun) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// EnqueueRequest describes a job to schedule.
type EnqueueRequest struct {
	TenantID    uuid.UUID
	JobType     string
	Payload     any
	MaxAttempts int
	// RunAfter delays the first attempt. Zero means now.
	RunAfter time.Time
}

func (r EnqueueRequest) validate() error {
	if r.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant is required", ErrInvalidJob)
	}
	if r.JobType == "" {
		return fmt.Errorf("%w: job type is required", ErrInvalidJob)
	}
	return nil
}
