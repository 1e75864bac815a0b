package csvimport

import (
	"errors"
	"fmt"
)

// Issue codes recorded on migration validation results.
const (
	ErrCodeImportRequiredField     = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType       = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidFormat     = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeImportInvalidEnum       = "ERR_IMPORT_INVALID_ENUM"
	ErrCodeImportInvalidLength     = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeImportInvalidRange      = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeImportValidation        = "ERR_IMPORT_VALIDATION"
	ErrCodeImportDuplicateInFile   = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeImportReferenceNotFound = "ERR_IMPORT_REFERENCE_NOT_FOUND"

	WarnCodeImportTruncated    = "WARN_IMPORT_TRUNCATED"
	WarnCodeImportUnknownField = "WARN_IMPORT_UNKNOWN_FIELD"
)

var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the content is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrNoDataRows is returned when the CSV file has no data rows
	ErrNoDataRows = errors.New("CSV file contains no data rows")

	// ErrDuplicateHeader is returned when two columns normalize to the same name
	ErrDuplicateHeader = errors.New("CSV file has duplicate column names")
)

// RowError is a parse failure on a specific line.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
