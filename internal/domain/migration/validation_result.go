package migration

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// Issue is a single problem found on a field of a source record.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// UserAction records how a person resolved a record.
type UserAction string

const (
	UserActionNone UserAction = ""
	UserActionFix  UserAction = "FIX"
	UserActionSkip UserAction = "SKIP"
)

// MigrationValidationResult is the validation outcome of one source record.
type MigrationValidationResult struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	SessionID       uuid.UUID
	ChunkID         uuid.UUID
	EntityType      EntityType
	RecordIndex     int
	OriginalData    map[string]any
	TransformedData map[string]any
	Status          RecordStatus
	Errors          []Issue
	Warnings        []Issue
	UserAction      UserAction
	ResolvedAt      *time.Time
}

// NewValidationResult derives the record status from the issues found:
// any error makes it ERROR, otherwise any warning makes it WARNING.
func NewValidationResult(
	chunk *MigrationChunk,
	recordIndex int,
	original, transformed map[string]any,
	errs, warnings []Issue,
) *MigrationValidationResult {
	status := RecordStatusValid
	switch {
	case len(errs) > 0:
		status = RecordStatusError
	case len(warnings) > 0:
		status = RecordStatusWarning
	}
	return &MigrationValidationResult{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        chunk.TenantID,
		SessionID:       chunk.SessionID,
		ChunkID:         chunk.ID,
		EntityType:      chunk.EntityType,
		RecordIndex:     recordIndex,
		OriginalData:    original,
		TransformedData: transformed,
		Status:          status,
		Errors:          errs,
		Warnings:        warnings,
	}
}

// ApplyFix replaces the transformed data of an ERROR or WARNING record with
// data the user corrected. The caller re-validates data before applying.
func (r *MigrationValidationResult) ApplyFix(data map[string]any) error {
	if r.Status != RecordStatusError && r.Status != RecordStatusWarning {
		return shared.NewInvalidStateError("Cannot fix a record in %s status", r.Status)
	}
	if len(data) == 0 {
		return shared.NewDomainError("INVALID_FIX", "Fixed data cannot be empty")
	}
	now := time.Now()
	r.TransformedData = data
	r.Status = RecordStatusFixed
	r.Errors = nil
	r.Warnings = nil
	r.UserAction = UserActionFix
	r.ResolvedAt = &now
	r.Touch()
	return nil
}

// Skip excludes the record from import.
func (r *MigrationValidationResult) Skip() error {
	if r.Status == RecordStatusSkipped {
		return shared.NewInvalidStateError("Record is already skipped")
	}
	now := time.Now()
	r.Status = RecordStatusSkipped
	r.UserAction = UserActionSkip
	r.ResolvedAt = &now
	r.Touch()
	return nil
}

// IsImportable returns true if the record will be written on import.
func (r *MigrationValidationResult) IsImportable() bool {
	return r.Status.IsImportable()
}
