package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SS-TEST-1000", "test message"),
			expected: "[SS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SS-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SS-TEST-1000", "message 1")
	err2 := NewDomainError("SS-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("SS-TEST-1001", "message 1") // Different code

	// Same code should match
	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}

	// Different code should not match
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}

	// Should not match non-DomainError
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("SS-TEST-1000", "wrapper").WithCause(cause)

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Without cause
	errNoCause := NewDomainError("SS-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("SS-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	// Check original is unchanged
	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}

	// Check new error has details
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}

	// Check code and message are preserved
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
	if withDetails.Message != original.Message {
		t.Errorf("Message = %q, want %q", withDetails.Message, original.Message)
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("SS-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	// Check original is unchanged
	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}

	// Check new error has cause
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}

	// Check code and message are preserved
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrIntegrity

	if !IsDomainError(err, "SS-INT-4190") {
		t.Error("IsDomainError should return true for matching code")
	}

	if IsDomainError(err, "SS-INT-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}

	if IsDomainError(fmt.Errorf("regular error"), "SS-INT-4190") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrIntegrity)
	if !IsDomainError(wrapped, "SS-INT-4190") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "domain error",
			err:      ErrKeyFormat,
			expected: "SS-VAL-4002",
		},
		{
			name:     "wrapped domain error",
			err:      fmt.Errorf("wrapped: %w", ErrEnvelopeMalformed),
			expected: "SS-ENV-4220",
		},
		{
			name:     "storage error",
			err:      NewStorageError(OpRetrieve, StageDecrypt, Secret, ErrIntegrity),
			expected: "SS-INT-4190",
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("regular error"),
			expected: "",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrConfig, "SS-CFG-1001"},
		{ErrValidation, "SS-VAL-4001"},
		{ErrKeyFormat, "SS-VAL-4002"},
		{ErrSerialization, "SS-VAL-4003"},
		{ErrInvalidClassification, "SS-VAL-4004"},
		{ErrEnvelopeMalformed, "SS-ENV-4220"},
		{ErrIntegrity, "SS-INT-4190"},
		{ErrEntryNotFound, "SS-ENT-4040"},
		{ErrInternal, "SS-SYS-5000"},
		{ErrStorageBackend, "SS-STOR-5001"},
		{ErrBadRequest, "SS-SYS-4000"},
		{ErrUnauthorized, "SS-AUTH-4010"},
		{ErrRateLimited, "SS-SYS-4290"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	cause := ErrStorageBackend.WithCause(fmt.Errorf("disk full"))
	err := NewStorageError(OpStore, StagePersist, Confidential, cause)

	if !errors.Is(err, ErrStorageBackend) {
		t.Error("errors.Is should see the wrapped domain error")
	}

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatal("errors.As should find the StorageError")
	}
	if se.Stage != StagePersist {
		t.Errorf("Stage = %q, want %q", se.Stage, StagePersist)
	}
	if se.Classification != Confidential {
		t.Errorf("Classification = %v, want %v", se.Classification, Confidential)
	}

	want := "confidential store failed at persist: [SS-STOR-5001] storage backend error"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
