package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the format SS-{AREA}-{NNNN}. The last four digits hint at
// the HTTP status the API layer maps the error to.
type DomainError struct {
	Code    string // Error code (e.g., "SS-INT-4190")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Configuration Errors (CFG)
// ============================================================================

var (
	// ErrConfig indicates invalid engine or cipher configuration.
	// It is raised at construction time, never deferred to a call.
	ErrConfig = NewDomainError("SS-CFG-1001", "invalid configuration")
)

// ============================================================================
// Validation Errors (VAL)
// ============================================================================

var (
	// ErrValidation indicates an input failed validation.
	ErrValidation = NewDomainError("SS-VAL-4001", "validation failed")

	// ErrKeyFormat indicates a logical key does not match ^[A-Za-z0-9_-]{1,100}$.
	ErrKeyFormat = NewDomainError("SS-VAL-4002", "invalid key format")

	// ErrSerialization indicates a value could not be serialized or decoded.
	ErrSerialization = NewDomainError("SS-VAL-4003", "value serialization failed")

	// ErrInvalidClassification indicates an unknown classification tier.
	ErrInvalidClassification = NewDomainError("SS-VAL-4004", "invalid classification")
)

// ============================================================================
// Envelope and Integrity Errors (ENV, INT)
// ============================================================================

var (
	// ErrEnvelopeMalformed indicates a persisted envelope failed to parse.
	ErrEnvelopeMalformed = NewDomainError("SS-ENV-4220", "malformed envelope")

	// ErrIntegrity indicates decryption or checksum verification failed.
	// Tampering and a wrong password are deliberately reported the same way.
	ErrIntegrity = NewDomainError("SS-INT-4190", "integrity verification failed")
)

// ============================================================================
// Entry Errors (ENT)
// ============================================================================

var (
	// ErrEntryNotFound indicates the requested entry does not exist or expired.
	// The engine reports misses as (false, nil); this code is used by the API layer.
	ErrEntryNotFound = NewDomainError("SS-ENT-4040", "entry not found")
)

// ============================================================================
// System Errors (SYS, STOR)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = NewDomainError("SS-SYS-5000", "internal error")

	// ErrStorageBackend indicates the key-value backend failed.
	ErrStorageBackend = NewDomainError("SS-STOR-5001", "storage backend error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("SS-SYS-4000", "bad request")

	// ErrUnauthorized indicates missing or invalid API credentials.
	ErrUnauthorized = NewDomainError("SS-AUTH-4010", "authentication required")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("SS-SYS-4290", "too many requests")
)

// Stage names the step of an engine operation that failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageSerialize Stage = "serialize"
	StageEncrypt   Stage = "encrypt"
	StageChecksum  Stage = "checksum"
	StagePersist   Stage = "persist"
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageDecrypt   Stage = "decrypt"
	StageVerify    Stage = "verify"
	StageDecode    Stage = "decode"
	StageDelete    Stage = "delete"
)

// StorageError is returned by every failing engine operation. It records
// where the operation failed and for which classification, and unwraps to
// the underlying DomainError.
type StorageError struct {
	Op             Operation
	Stage          Stage
	Classification Classification
	Err            error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s failed at %s: %v", e.Classification, e.Op, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with operation context.
func NewStorageError(op Operation, stage Stage, c Classification, err error) *StorageError {
	return &StorageError{Op: op, Stage: stage, Classification: c, Err: err}
}
