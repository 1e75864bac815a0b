package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stocker/backend/internal/domain/shared"
)

// Error codes returned to clients. Domain codes that are specific to one
// aggregate (INVALID_TITLE, CHUNK_TOO_LARGE...) pass through unchanged.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeForbidden           = "ERR_FORBIDDEN"
	ErrCodeTokenExpired        = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid        = "ERR_TOKEN_INVALID"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge     = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
	ErrCodeIdempotencyConflict = "ERR_IDEMPOTENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeTokenExpired:        http.StatusUnauthorized,
	ErrCodeTokenInvalid:        http.StatusUnauthorized,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
	ErrCodeIdempotencyConflict: http.StatusConflict,

	"CHUNK_TOO_LARGE": http.StatusRequestEntityTooLarge,
	"FILE_TOO_LARGE":  http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code. Unmapped
// INVALID_* codes are argument errors (400); any other unmapped code is a
// business rule violation (422).
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	if strings.HasPrefix(code, "ERR_") {
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

// domainCodes maps the shared domain codes to client codes.
var domainCodes = map[string]string{
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeAlreadyExists:       ErrCodeAlreadyExists,
	shared.CodeInvalidInput:        ErrCodeInvalidInput,
	shared.CodeValidation:          ErrCodeValidation,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
	shared.CodeUnauthorized:        ErrCodeUnauthorized,
	shared.CodeForbidden:           ErrCodeForbidden,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeInvalidTenant:       ErrCodeUnauthorized,
	"PAYLOAD_TOO_LARGE":            ErrCodePayloadTooLarge,
}

// NormalizeErrorCode converts a domain code to its client code.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainCodes[code]; ok {
		return mapped
	}
	return code
}

// FromError builds the status and body for err. Errors that are not
// domain errors are reported as internal errors without their message.
func FromError(err error, requestID string) (int, Response) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError,
			NewErrorResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
	}
	code := NormalizeErrorCode(domainErr.Code)
	resp := NewErrorResponse(code, domainErr.Message, requestID)
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		resp.Error.Details = ValidationDetails(invalid)
	}
	return GetHTTPStatus(code), resp
}

// ValidationDetails lists validator failures by json-ish field name.
func ValidationDetails(errs validator.ValidationErrors) []ValidationDetail {
	details := make([]ValidationDetail, 0, len(errs))
	for _, fe := range errs {
		details = append(details, ValidationDetail{
			Field:   toSnake(fe.Field()),
			Code:    fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "uuid":
		return "must be a UUID"
	}
	return "is invalid"
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
