// Package migration models the data-migration workflow that brings records
// from an external ERP/CRM into a tenant: a session collects uploaded
// chunks, every record is validated into a MigrationValidationResult, and
// importable results are written into the target bounded contexts.
package migration

// SessionStatus is the lifecycle state of a MigrationSession.
type SessionStatus string

const (
	SessionStatusCreated    SessionStatus = "CREATED"
	SessionStatusUploading  SessionStatus = "UPLOADING"
	SessionStatusUploaded   SessionStatus = "UPLOADED"
	SessionStatusValidating SessionStatus = "VALIDATING"
	SessionStatusValidated  SessionStatus = "VALIDATED"
	SessionStatusImporting  SessionStatus = "IMPORTING"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusFailed     SessionStatus = "FAILED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusCreated, SessionStatusUploading, SessionStatusUploaded,
		SessionStatusValidating, SessionStatusValidated, SessionStatusImporting,
		SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusCancelled
}

// IsRunning reports whether a background job owns the session.
func (s SessionStatus) IsRunning() bool {
	return s == SessionStatusValidating || s == SessionStatusImporting
}

// SourceSystem names the system the data is exported from.
type SourceSystem string

const (
	SourceCSV     SourceSystem = "csv"
	SourceExcel   SourceSystem = "excel"
	SourceLogo    SourceSystem = "logo"
	SourceNetsis  SourceSystem = "netsis"
	SourceGeneric SourceSystem = "generic"
)

// IsValid checks if the source system is known
func (s SourceSystem) IsValid() bool {
	switch s {
	case SourceCSV, SourceExcel, SourceLogo, SourceNetsis, SourceGeneric:
		return true
	}
	return false
}

// EntityType is the kind of record being migrated.
type EntityType string

const (
	EntityDeal        EntityType = "deal"
	EntityReorderRule EntityType = "reorder_rule"
)

// SupportedEntityTypes lists every entity type an importer exists for.
func SupportedEntityTypes() []EntityType {
	return []EntityType{EntityDeal, EntityReorderRule}
}

// IsValid checks if the entity type can be migrated
func (e EntityType) IsValid() bool {
	for _, t := range SupportedEntityTypes() {
		if t == e {
			return true
		}
	}
	return false
}

// ConflictMode defines what the importer does when a record already exists.
type ConflictMode string

const (
	ConflictModeSkip   ConflictMode = "skip"
	ConflictModeUpdate ConflictMode = "update"
	ConflictModeFail   ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

// ChunkStatus is the processing state of a single uploaded chunk.
type ChunkStatus string

const (
	ChunkStatusPending   ChunkStatus = "PENDING"
	ChunkStatusValidated ChunkStatus = "VALIDATED"
	ChunkStatusImported  ChunkStatus = "IMPORTED"
	ChunkStatusFailed    ChunkStatus = "FAILED"
)

// RecordStatus is the validation outcome of one source record.
type RecordStatus string

const (
	RecordStatusValid   RecordStatus = "VALID"
	RecordStatusWarning RecordStatus = "WARNING"
	RecordStatusError   RecordStatus = "ERROR"
	RecordStatusFixed   RecordStatus = "FIXED"
	RecordStatusSkipped RecordStatus = "SKIPPED"
)

// IsValid checks if the record status is valid
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusValid, RecordStatusWarning, RecordStatusError,
		RecordStatusFixed, RecordStatusSkipped:
		return true
	}
	return false
}

// IsImportable reports whether a record in this state is written on import.
func (s RecordStatus) IsImportable() bool {
	return s == RecordStatusValid || s == RecordStatusWarning || s == RecordStatusFixed
}
