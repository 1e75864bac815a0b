package migration

import (
	"github.com/stocker/backend/internal/domain/shared"
)

const (
	EventTypeValidationCompleted = "MigrationValidationCompleted"
	EventTypeSessionCompleted    = "MigrationSessionCompleted"
	EventTypeSessionFailed       = "MigrationSessionFailed"
	EventTypeSessionCancelled    = "MigrationSessionCancelled"
)

// ValidationCompletedEvent is raised when every record of a session has a result.
type ValidationCompletedEvent struct {
	shared.BaseDomainEvent
	ValidRecords   int `json:"valid_records"`
	WarningRecords int `json:"warning_records"`
	ErrorRecords   int `json:"error_records"`
}

func NewValidationCompletedEvent(s *MigrationSession) *ValidationCompletedEvent {
	return &ValidationCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeValidationCompleted, AggregateTypeSession, s.ID, s.TenantID),
		ValidRecords:    s.ValidRecords,
		WarningRecords:  s.WarningRecords,
		ErrorRecords:    s.ErrorRecords,
	}
}

// SessionCompletedEvent is raised when the import phase finished.
type SessionCompletedEvent struct {
	shared.BaseDomainEvent
	ImportedRecords int `json:"imported_records"`
	SkippedRecords  int `json:"skipped_records"`
	FailedRecords   int `json:"failed_records"`
}

func NewSessionCompletedEvent(s *MigrationSession) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionCompleted, AggregateTypeSession, s.ID, s.TenantID),
		ImportedRecords: s.ImportedRecords,
		SkippedRecords:  s.SkippedRecords,
		FailedRecords:   s.FailedRecords,
	}
}

// SessionFailedEvent is raised when a session fails in any phase.
type SessionFailedEvent struct {
	shared.BaseDomainEvent
	Phase  SessionStatus `json:"phase"`
	Reason string        `json:"reason"`
}

func NewSessionFailedEvent(s *MigrationSession, phase SessionStatus) *SessionFailedEvent {
	return &SessionFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionFailed, AggregateTypeSession, s.ID, s.TenantID),
		Phase:           phase,
		Reason:          s.ErrorMessage,
	}
}

// SessionCancelledEvent is raised when a user cancels a session.
type SessionCancelledEvent struct {
	shared.BaseDomainEvent
}

func NewSessionCancelledEvent(s *MigrationSession) *SessionCancelledEvent {
	return &SessionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionCancelled, AggregateTypeSession, s.ID, s.TenantID),
	}
}
