package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"gorm.io/datatypes"
)

// MigrationSessionModel is the persistence model for MigrationSession.
type MigrationSessionModel struct {
	TenantAggregateModel
	Name               string                  `gorm:"type:varchar(200);not null"`
	SourceSystem       migration.SourceSystem  `gorm:"type:varchar(20);not null"`
	EntityTypes        datatypes.JSON          `gorm:"type:jsonb;not null"`
	Status             migration.SessionStatus `gorm:"type:varchar(20);not null;index"`
	SkipInvalidRecords bool                    `gorm:"not null"`
	ConflictMode       migration.ConflictMode  `gorm:"type:varchar(10);not null"`
	BatchSize          int                     `gorm:"not null"`

	TotalChunks     int `gorm:"not null"`
	TotalRecords    int `gorm:"not null"`
	ValidRecords    int `gorm:"not null"`
	WarningRecords  int `gorm:"not null"`
	ErrorRecords    int `gorm:"not null"`
	ImportedRecords int `gorm:"not null"`
	SkippedRecords  int `gorm:"not null"`
	FailedRecords   int `gorm:"not null"`

	ConflictSkippedRecords int `gorm:"not null"`

	ValidationJobID *uuid.UUID `gorm:"type:uuid"`
	ImportJobID     *uuid.UUID `gorm:"type:uuid"`
	StartedAt       *time.Time `gorm:"type:timestamptz"`
	ValidatedAt     *time.Time `gorm:"type:timestamptz"`
	ImportStartedAt *time.Time `gorm:"type:timestamptz"`
	CompletedAt     *time.Time `gorm:"type:timestamptz"`
	ErrorMessage    string     `gorm:"type:text"`
}

func (MigrationSessionModel) TableName() string {
	return "migration_sessions"
}

func (m *MigrationSessionModel) ToDomain() *migration.MigrationSession {
	s := &migration.MigrationSession{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Name:                m.Name,
		SourceSystem:        m.SourceSystem,
		Status:              m.Status,
		Options: migration.SessionOptions{
			SkipInvalidRecords: m.SkipInvalidRecords,
			ConflictMode:       m.ConflictMode,
			BatchSize:          m.BatchSize,
		},
		TotalChunks:            m.TotalChunks,
		TotalRecords:           m.TotalRecords,
		ValidRecords:           m.ValidRecords,
		WarningRecords:         m.WarningRecords,
		ErrorRecords:           m.ErrorRecords,
		ImportedRecords:        m.ImportedRecords,
		SkippedRecords:         m.SkippedRecords,
		FailedRecords:          m.FailedRecords,
		ConflictSkippedRecords: m.ConflictSkippedRecords,
		ValidationJobID:        m.ValidationJobID,
		ImportJobID:            m.ImportJobID,
		StartedAt:              m.StartedAt,
		ValidatedAt:            m.ValidatedAt,
		ImportStartedAt:        m.ImportStartedAt,
		CompletedAt:            m.CompletedAt,
		ErrorMessage:           m.ErrorMessage,
	}
	fromJSON(m.EntityTypes, &s.EntityTypes)
	return s
}

func MigrationSessionModelFromDomain(s *migration.MigrationSession) *MigrationSessionModel {
	m := &MigrationSessionModel{
		Name:                   s.Name,
		SourceSystem:           s.SourceSystem,
		EntityTypes:            toJSON(s.EntityTypes, "[]"),
		Status:                 s.Status,
		SkipInvalidRecords:     s.Options.SkipInvalidRecords,
		ConflictMode:           s.Options.ConflictMode,
		BatchSize:              s.Options.BatchSize,
		TotalChunks:            s.TotalChunks,
		TotalRecords:           s.TotalRecords,
		ValidRecords:           s.ValidRecords,
		WarningRecords:         s.WarningRecords,
		ErrorRecords:           s.ErrorRecords,
		ImportedRecords:        s.ImportedRecords,
		SkippedRecords:         s.SkippedRecords,
		FailedRecords:          s.FailedRecords,
		ConflictSkippedRecords: s.ConflictSkippedRecords,
		ValidationJobID:        s.ValidationJobID,
		ImportJobID:            s.ImportJobID,
		StartedAt:              s.StartedAt,
		ValidatedAt:            s.ValidatedAt,
		ImportStartedAt:        s.ImportStartedAt,
		CompletedAt:            s.CompletedAt,
		ErrorMessage:           s.ErrorMessage,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}

// MigrationChunkModel is the persistence model for MigrationChunk.
type MigrationChunkModel struct {
	TenantModel
	SessionID   uuid.UUID             `gorm:"type:uuid;not null"`
	EntityType  migration.EntityType  `gorm:"type:varchar(50);not null"`
	ChunkIndex  int                   `gorm:"not null"`
	TotalChunks int                   `gorm:"not null"`
	RecordCount int                   `gorm:"not null"`
	StorageKey  string                `gorm:"type:varchar(500);not null"`
	Checksum    string                `gorm:"type:char(64);not null"`
	Status      migration.ChunkStatus `gorm:"type:varchar(20);not null"`

	ValidRecords    int `gorm:"not null"`
	WarningRecords  int `gorm:"not null"`
	ErrorRecords    int `gorm:"not null"`
	ImportedRecords int `gorm:"not null"`
	FailedRecords   int `gorm:"not null"`

	ProcessedAt  *time.Time `gorm:"type:timestamptz"`
	ErrorMessage string     `gorm:"type:text"`
}

func (MigrationChunkModel) TableName() string {
	return "migration_chunks"
}

func (m *MigrationChunkModel) ToDomain() *migration.MigrationChunk {
	return &migration.MigrationChunk{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		SessionID:       m.SessionID,
		EntityType:      m.EntityType,
		ChunkIndex:      m.ChunkIndex,
		TotalChunks:     m.TotalChunks,
		RecordCount:     m.RecordCount,
		StorageKey:      m.StorageKey,
		Checksum:        m.Checksum,
		Status:          m.Status,
		ValidRecords:    m.ValidRecords,
		WarningRecords:  m.WarningRecords,
		ErrorRecords:    m.ErrorRecords,
		ImportedRecords: m.ImportedRecords,
		FailedRecords:   m.FailedRecords,
		ProcessedAt:     m.ProcessedAt,
		ErrorMessage:    m.ErrorMessage,
	}
}

func MigrationChunkModelFromDomain(c *migration.MigrationChunk) *MigrationChunkModel {
	m := &MigrationChunkModel{
		SessionID:       c.SessionID,
		EntityType:      c.EntityType,
		ChunkIndex:      c.ChunkIndex,
		TotalChunks:     c.TotalChunks,
		RecordCount:     c.RecordCount,
		StorageKey:      c.StorageKey,
		Checksum:        c.Checksum,
		Status:          c.Status,
		ValidRecords:    c.ValidRecords,
		WarningRecords:  c.WarningRecords,
		ErrorRecords:    c.ErrorRecords,
		ImportedRecords: c.ImportedRecords,
		FailedRecords:   c.FailedRecords,
		ProcessedAt:     c.ProcessedAt,
		ErrorMessage:    c.ErrorMessage,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TenantID = c.TenantID
	return m
}

// MigrationValidationResultModel is one validated source record.
type MigrationValidationResultModel struct {
	TenantModel
	SessionID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	ChunkID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	EntityType      migration.EntityType   `gorm:"type:varchar(50);not null"`
	RecordIndex     int                    `gorm:"not null"`
	OriginalData    datatypes.JSON         `gorm:"type:jsonb;not null"`
	TransformedData datatypes.JSON         `gorm:"type:jsonb;not null"`
	Status          migration.RecordStatus `gorm:"type:varchar(20);not null;index"`
	Errors          datatypes.JSON         `gorm:"type:jsonb;not null"`
	Warnings        datatypes.JSON         `gorm:"type:jsonb;not null"`
	UserAction      migration.UserAction   `gorm:"type:varchar(10);not null"`
	ResolvedAt      *time.Time             `gorm:"type:timestamptz"`
}

func (MigrationValidationResultModel) TableName() string {
	return "migration_validation_results"
}

func (m *MigrationValidationResultModel) ToDomain() *migration.MigrationValidationResult {
	r := &migration.MigrationValidationResult{
		BaseEntity:  m.BaseModel.ToDomain(),
		TenantID:    m.TenantID,
		SessionID:   m.SessionID,
		ChunkID:     m.ChunkID,
		EntityType:  m.EntityType,
		RecordIndex: m.RecordIndex,
		Status:      m.Status,
		UserAction:  m.UserAction,
		ResolvedAt:  m.ResolvedAt,
	}
	fromJSON(m.OriginalData, &r.OriginalData)
	fromJSON(m.TransformedData, &r.TransformedData)
	fromJSON(m.Errors, &r.Errors)
	fromJSON(m.Warnings, &r.Warnings)
	return r
}

func MigrationValidationResultModelFromDomain(r *migration.MigrationValidationResult) *MigrationValidationResultModel {
	m := &MigrationValidationResultModel{
		SessionID:       r.SessionID,
		ChunkID:         r.ChunkID,
		EntityType:      r.EntityType,
		RecordIndex:     r.RecordIndex,
		OriginalData:    toJSON(r.OriginalData, "{}"),
		TransformedData: toJSON(r.TransformedData, "{}"),
		Status:          r.Status,
		Errors:          toJSON(r.Errors, "[]"),
		Warnings:        toJSON(r.Warnings, "[]"),
		UserAction:      r.UserAction,
		ResolvedAt:      r.ResolvedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	return m
}
