package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

const (
	// AggregateTypeSession is the aggregate type name used in events.
	AggregateTypeSession = "MigrationSession"

	maxSessionNameLength = 200
	DefaultBatchSize     = 500
	MaxBatchSize         = 5000
)

// SessionOptions controls how validation results are turned into imports.
type SessionOptions struct {
	// SkipInvalidRecords lets an import start while ERROR records remain;
	// those records are counted as skipped.
	SkipInvalidRecords bool
	ConflictMode       ConflictMode
	BatchSize          int
}

// DefaultSessionOptions returns the options used when a caller sets none.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ConflictMode: ConflictModeSkip,
		BatchSize:    DefaultBatchSize,
	}
}

// MigrationSession is the aggregate root for one migration run.
type MigrationSession struct {
	shared.TenantAggregateRoot
	Name         string
	SourceSystem SourceSystem
	EntityTypes  []EntityType
	Status       SessionStatus
	Options      SessionOptions

	TotalChunks     int
	TotalRecords    int
	ValidRecords    int
	WarningRecords  int
	ErrorRecords    int
	ImportedRecords int
	SkippedRecords  int
	FailedRecords   int
	// ConflictSkippedRecords are importable records the import passed over
	// because they already existed. They are part of SkippedRecords.
	ConflictSkippedRecords int

	ValidationJobID *uuid.UUID
	ImportJobID     *uuid.UUID

	StartedAt       *time.Time
	ValidatedAt     *time.Time
	ImportStartedAt *time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
}

// NewMigrationSession creates a session in CREATED state.
func NewMigrationSession(
	tenantID uuid.UUID,
	name string,
	source SourceSystem,
	entityTypes []EntityType,
	opts SessionOptions,
) (*MigrationSession, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Session name cannot be empty")
	}
	if len([]rune(name)) > maxSessionNameLength {
		return nil, shared.NewDomainError("INVALID_NAME", fmt.Sprintf("Session name cannot exceed %d characters", maxSessionNameLength))
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_SYSTEM", fmt.Sprintf("Invalid source system: %s", source))
	}
	if len(entityTypes) == 0 {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", "At least one entity type is required")
	}
	seen := make(map[EntityType]struct{}, len(entityTypes))
	types := make([]EntityType, 0, len(entityTypes))
	for _, et := range entityTypes {
		if !et.IsValid() {
			return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Unsupported entity type: %s", et))
		}
		if _, dup := seen[et]; dup {
			continue
		}
		seen[et] = struct{}{}
		types = append(types, et)
	}

	if opts.ConflictMode == "" {
		opts.ConflictMode = ConflictModeSkip
	}
	if !opts.ConflictMode.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONFLICT_MODE", fmt.Sprintf("Invalid conflict mode: %s", opts.ConflictMode))
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize > MaxBatchSize {
		return nil, shared.NewDomainError("INVALID_BATCH_SIZE", fmt.Sprintf("Batch size cannot exceed %d", MaxBatchSize))
	}

	return &MigrationSession{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		SourceSystem:        source,
		EntityTypes:         types,
		Status:              SessionStatusCreated,
		Options:             opts,
	}, nil
}

// Supports reports whether the session was opened for entityType.
func (s *MigrationSession) Supports(entityType EntityType) bool {
	for _, et := range s.EntityTypes {
		if et == entityType {
			return true
		}
	}
	return false
}

// RegisterChunk accounts for an uploaded chunk of recordCount records.
func (s *MigrationSession) RegisterChunk(entityType EntityType, recordCount int) error {
	if s.Status != SessionStatusCreated && s.Status != SessionStatusUploading {
		return shared.NewInvalidStateError("Cannot upload chunks to a session in %s status", s.Status)
	}
	if !s.Supports(entityType) {
		return shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Session does not migrate %s records", entityType))
	}
	if recordCount <= 0 {
		return shared.NewDomainError("EMPTY_CHUNK", "Chunk must contain at least one record")
	}

	if s.Status == SessionStatusCreated {
		now := time.Now()
		s.StartedAt = &now
		s.Status = SessionStatusUploading
	}
	s.TotalChunks++
	s.TotalRecords += recordCount
	s.Touch()
	return nil
}

// CompleteUpload closes the upload phase.
func (s *MigrationSession) CompleteUpload() error {
	if s.Status != SessionStatusUploading {
		return shared.NewInvalidStateError("Cannot complete upload for a session in %s status", s.Status)
	}
	if s.TotalRecords == 0 {
		return shared.NewDomainError("EMPTY_SESSION", "No records have been uploaded")
	}
	s.Status = SessionStatusUploaded
	s.Touch()
	return nil
}

// StartValidation moves the session to VALIDATING and resets the
// validation counters. A VALIDATED session may be validated again.
func (s *MigrationSession) StartValidation(jobID uuid.UUID) error {
	if s.Status != SessionStatusUploaded && s.Status != SessionStatusValidated {
		return shared.NewInvalidStateError("Cannot start validation for a session in %s status", s.Status)
	}
	s.Status = SessionStatusValidating
	s.ValidationJobID = &jobID
	s.ValidRecords = 0
	s.WarningRecords = 0
	s.ErrorRecords = 0
	s.SkippedRecords = 0
	s.ValidatedAt = nil
	s.Touch()
	return nil
}

// RecordValidationProgress adds the outcome of one validated chunk.
func (s *MigrationSession) RecordValidationProgress(valid, warning, errCount int) error {
	if s.Status != SessionStatusValidating {
		return shared.NewInvalidStateError("Cannot record validation progress for a session in %s status", s.Status)
	}
	if valid < 0 || warning < 0 || errCount < 0 {
		return shared.NewDomainError("INVALID_COUNT", "Counts cannot be negative")
	}
	if s.ValidRecords+s.WarningRecords+s.ErrorRecords+valid+warning+errCount > s.TotalRecords {
		return shared.NewDomainError("INVALID_COUNT", "Validated records exceed total records")
	}
	s.ValidRecords += valid
	s.WarningRecords += warning
	s.ErrorRecords += errCount
	s.Touch()
	return nil
}

// ResetValidationProgress zeroes the counters of a validation that is
// being run again from the first chunk.
func (s *MigrationSession) ResetValidationProgress() error {
	if s.Status != SessionStatusValidating {
		return shared.NewInvalidStateError("Cannot reset validation progress for a session in %s status", s.Status)
	}
	s.ValidRecords = 0
	s.WarningRecords = 0
	s.ErrorRecords = 0
	s.Touch()
	return nil
}

// CompleteValidation finishes the validation phase with the final counts.
func (s *MigrationSession) CompleteValidation(valid, warning, errCount int) error {
	if s.Status != SessionStatusValidating {
		return shared.NewInvalidStateError("Cannot complete validation for a session in %s status", s.Status)
	}
	if valid < 0 || warning < 0 || errCount < 0 {
		return shared.NewDomainError("INVALID_COUNT", "Counts cannot be negative")
	}
	if valid+warning+errCount != s.TotalRecords {
		return shared.NewDomainError("INVALID_COUNT",
			fmt.Sprintf("Validated %d records but session holds %d", valid+warning+errCount, s.TotalRecords))
	}
	now := time.Now()
	s.ValidRecords = valid
	s.WarningRecords = warning
	s.ErrorRecords = errCount
	s.Status = SessionStatusValidated
	s.ValidatedAt = &now
	s.Touch()

	s.AddDomainEvent(NewValidationCompletedEvent(s))
	return nil
}

// ResolveRecord moves one record between validation buckets after a user
// fixed or skipped it.
func (s *MigrationSession) ResolveRecord(from, to RecordStatus) error {
	if s.Status != SessionStatusValidated {
		return shared.NewInvalidStateError("Records can only be resolved on a validated session, current status is %s", s.Status)
	}
	if from == to {
		return nil
	}
	if err := s.adjustBucket(from, -1); err != nil {
		return err
	}
	if err := s.adjustBucket(to, 1); err != nil {
		return err
	}
	s.Touch()
	return nil
}

func (s *MigrationSession) adjustBucket(status RecordStatus, delta int) error {
	var counter *int
	switch status {
	case RecordStatusValid, RecordStatusFixed:
		counter = &s.ValidRecords
	case RecordStatusWarning:
		counter = &s.WarningRecords
	case RecordStatusError:
		counter = &s.ErrorRecords
	case RecordStatusSkipped:
		counter = &s.SkippedRecords
	default:
		return shared.NewDomainError("INVALID_RECORD_STATUS", fmt.Sprintf("Invalid record status: %s", status))
	}
	if *counter+delta < 0 {
		return shared.NewDomainError("INVALID_COUNT", fmt.Sprintf("No %s records left to resolve", status))
	}
	*counter += delta
	return nil
}

// ImportableRecords is the number of records the import phase will write.
func (s *MigrationSession) ImportableRecords() int {
	return s.ValidRecords + s.WarningRecords
}

// StartImport moves a validated session to IMPORTING.
func (s *MigrationSession) StartImport(jobID uuid.UUID) error {
	if s.Status != SessionStatusValidated {
		return shared.NewInvalidStateError("Cannot start import for a session in %s status", s.Status)
	}
	if s.ImportableRecords() == 0 {
		return shared.NewDomainError("NOTHING_TO_IMPORT", "Session has no importable records")
	}
	if s.ErrorRecords > 0 && !s.Options.SkipInvalidRecords {
		return shared.NewDomainError("INVALID_RECORDS_PRESENT",
			fmt.Sprintf("Session has %d invalid records; fix or skip them, or enable skipping invalid records", s.ErrorRecords))
	}
	now := time.Now()
	s.Status = SessionStatusImporting
	s.ImportJobID = &jobID
	s.ImportStartedAt = &now
	s.ImportedRecords = 0
	s.FailedRecords = 0
	s.ConflictSkippedRecords = 0
	s.Touch()
	return nil
}

// ImportProgress is the outcome of importing one chunk. Skipped counts
// invalid records left out; Conflicts counts importable records left out
// because they already existed.
type ImportProgress struct {
	Imported  int
	Skipped   int
	Conflicts int
	Failed    int
}

// RecordImportProgress adds the outcome of one imported chunk.
func (s *MigrationSession) RecordImportProgress(p ImportProgress) error {
	if s.Status != SessionStatusImporting {
		return shared.NewInvalidStateError("Cannot record import progress for a session in %s status", s.Status)
	}
	if p.Imported < 0 || p.Skipped < 0 || p.Conflicts < 0 || p.Failed < 0 {
		return shared.NewDomainError("INVALID_COUNT", "Counts cannot be negative")
	}
	s.ImportedRecords += p.Imported
	s.SkippedRecords += p.Skipped + p.Conflicts
	s.ConflictSkippedRecords += p.Conflicts
	s.FailedRecords += p.Failed
	s.Touch()
	return nil
}

// CompleteImport finishes the session.
func (s *MigrationSession) CompleteImport() error {
	if s.Status != SessionStatusImporting {
		return shared.NewInvalidStateError("Cannot complete import for a session in %s status", s.Status)
	}
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.CompletedAt = &now
	s.Touch()

	s.AddDomainEvent(NewSessionCompletedEvent(s))
	return nil
}

// Fail marks the session as failed with reason.
func (s *MigrationSession) Fail(reason string) error {
	if s.Status.IsTerminal() {
		return shared.NewInvalidStateError("Cannot fail a session in %s status", s.Status)
	}
	now := time.Now()
	previous := s.Status
	s.Status = SessionStatusFailed
	s.ErrorMessage = reason
	s.CompletedAt = &now
	s.Touch()

	s.AddDomainEvent(NewSessionFailedEvent(s, previous))
	return nil
}

// Cancel stops the session. A running job notices on its next checkpoint.
func (s *MigrationSession) Cancel() error {
	if s.Status.IsTerminal() {
		return shared.NewInvalidStateError("Cannot cancel a session in %s status", s.Status)
	}
	now := time.Now()
	s.Status = SessionStatusCancelled
	s.CompletedAt = &now
	s.Touch()

	s.AddDomainEvent(NewSessionCancelledEvent(s))
	return nil
}

// IsTerminal returns true once the session can no longer change.
func (s *MigrationSession) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// Progress returns the completion percentage of the current phase.
func (s *MigrationSession) Progress() float64 {
	switch s.Status {
	case SessionStatusValidating:
		return percent(s.ValidRecords+s.WarningRecords+s.ErrorRecords, s.TotalRecords)
	case SessionStatusImporting:
		return percent(s.ImportedRecords+s.FailedRecords+s.ConflictSkippedRecords, s.ImportableRecords())
	case SessionStatusUploaded, SessionStatusValidated, SessionStatusCompleted:
		return 100
	}
	return 0
}

// Duration returns the time between upload start and completion, or until
// now for a session still in progress.
func (s *MigrationSession) Duration() time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return end.Sub(*s.StartedAt)
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}
