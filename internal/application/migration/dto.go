package migrationapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
)

// SessionDTO is the API view of a migration session.
type SessionDTO struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	Name               string     `json:"name"`
	SourceSystem       string     `json:"source_system"`
	EntityTypes        []string   `json:"entity_types"`
	Status             string     `json:"status"`
	SkipInvalidRecords bool       `json:"skip_invalid_records"`
	ConflictMode       string     `json:"conflict_mode"`
	BatchSize          int        `json:"batch_size"`
	TotalChunks        int        `json:"total_chunks"`
	TotalRecords       int        `json:"total_records"`
	ValidRecords       int        `json:"valid_records"`
	WarningRecords     int        `json:"warning_records"`
	ErrorRecords       int        `json:"error_records"`
	ImportedRecords    int        `json:"imported_records"`
	SkippedRecords     int        `json:"skipped_records"`
	FailedRecords      int        `json:"failed_records"`
	ConflictSkipped    int        `json:"conflict_skipped_records"`
	Progress           float64    `json:"progress"`
	ValidationJobID    *uuid.UUID `json:"validation_job_id,omitempty"`
	ImportJobID        *uuid.UUID `json:"import_job_id,omitempty"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	ValidatedAt        *time.Time `json:"validated_at,omitempty"`
	ImportStartedAt    *time.Time `json:"import_started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	DurationSeconds    float64    `json:"duration_seconds"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Version            int        `json:"version"`
}

// ToSessionDTO converts a session to its API view.
func ToSessionDTO(s *migration.MigrationSession) SessionDTO {
	types := make([]string, len(s.EntityTypes))
	for i, et := range s.EntityTypes {
		types[i] = string(et)
	}
	return SessionDTO{
		ID:                 s.ID,
		TenantID:           s.TenantID,
		Name:               s.Name,
		SourceSystem:       string(s.SourceSystem),
		EntityTypes:        types,
		Status:             string(s.Status),
		SkipInvalidRecords: s.Options.SkipInvalidRecords,
		ConflictMode:       string(s.Options.ConflictMode),
		BatchSize:          s.Options.BatchSize,
		TotalChunks:        s.TotalChunks,
		TotalRecords:       s.TotalRecords,
		ValidRecords:       s.ValidRecords,
		WarningRecords:     s.WarningRecords,
		ErrorRecords:       s.ErrorRecords,
		ImportedRecords:    s.ImportedRecords,
		SkippedRecords:     s.SkippedRecords,
		FailedRecords:      s.FailedRecords,
		ConflictSkipped:    s.ConflictSkippedRecords,
		Progress:           s.Progress(),
		ValidationJobID:    s.ValidationJobID,
		ImportJobID:        s.ImportJobID,
		ErrorMessage:       s.ErrorMessage,
		StartedAt:          s.StartedAt,
		ValidatedAt:        s.ValidatedAt,
		ImportStartedAt:    s.ImportStartedAt,
		CompletedAt:        s.CompletedAt,
		DurationSeconds:    s.Duration().Seconds(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		Version:            s.Version,
	}
}

// ChunkDTO is the API view of an uploaded chunk.
type ChunkDTO struct {
	ID              uuid.UUID  `json:"id"`
	SessionID       uuid.UUID  `json:"session_id"`
	EntityType      string     `json:"entity_type"`
	ChunkIndex      int        `json:"chunk_index"`
	TotalChunks     int        `json:"total_chunks"`
	RecordCount     int        `json:"record_count"`
	Checksum        string     `json:"checksum"`
	Status          string     `json:"status"`
	ValidRecords    int        `json:"valid_records"`
	WarningRecords  int        `json:"warning_records"`
	ErrorRecords    int        `json:"error_records"`
	ImportedRecords int        `json:"imported_records"`
	FailedRecords   int        `json:"failed_records"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func ToChunkDTO(c *migration.MigrationChunk) ChunkDTO {
	return ChunkDTO{
		ID:              c.ID,
		SessionID:       c.SessionID,
		EntityType:      string(c.EntityType),
		ChunkIndex:      c.ChunkIndex,
		TotalChunks:     c.TotalChunks,
		RecordCount:     c.RecordCount,
		Checksum:        c.Checksum,
		Status:          string(c.Status),
		ValidRecords:    c.ValidRecords,
		WarningRecords:  c.WarningRecords,
		ErrorRecords:    c.ErrorRecords,
		ImportedRecords: c.ImportedRecords,
		FailedRecords:   c.FailedRecords,
		ProcessedAt:     c.ProcessedAt,
		ErrorMessage:    c.ErrorMessage,
		CreatedAt:       c.CreatedAt,
	}
}

// ValidationResultDTO is the API view of one validated record.
type ValidationResultDTO struct {
	ID              uuid.UUID         `json:"id"`
	ChunkID         uuid.UUID         `json:"chunk_id"`
	EntityType      string            `json:"entity_type"`
	RecordIndex     int               `json:"record_index"`
	Status          string            `json:"status"`
	OriginalData    map[string]any    `json:"original_data"`
	TransformedData map[string]any    `json:"transformed_data,omitempty"`
	Errors          []migration.Issue `json:"errors,omitempty"`
	Warnings        []migration.Issue `json:"warnings,omitempty"`
	UserAction      string            `json:"user_action,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
}

func ToValidationResultDTO(r *migration.MigrationValidationResult) ValidationResultDTO {
	return ValidationResultDTO{
		ID:              r.ID,
		ChunkID:         r.ChunkID,
		EntityType:      string(r.EntityType),
		RecordIndex:     r.RecordIndex,
		Status:          string(r.Status),
		OriginalData:    r.OriginalData,
		TransformedData: r.TransformedData,
		Errors:          r.Errors,
		Warnings:        r.Warnings,
		UserAction:      string(r.UserAction),
		ResolvedAt:      r.ResolvedAt,
	}
}

// ValidationSummaryDTO aggregates the validation results of a session.
type ValidationSummaryDTO struct {
	SessionID uuid.UUID         `json:"session_id"`
	Status    string            `json:"status"`
	Totals    map[string]int64  `json:"totals"`
	ByEntity  []EntitySummary   `json:"by_entity"`
	TopIssues []IssueSummaryDTO `json:"top_issues"`
}

// EntitySummary holds per-status record counts of one entity type.
type EntitySummary struct {
	EntityType string           `json:"entity_type"`
	Counts     map[string]int64 `json:"counts"`
}

type IssueSummaryDTO struct {
	Field string `json:"field"`
	Code  string `json:"code"`
	Count int64  `json:"count"`
}
