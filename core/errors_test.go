package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_WrappedChecks(t *testing.T) {
	base := NewDomainError(ModuleScaler, ErrorCodeSchemaMismatch, "scaler expects 12 features, got 11")
	wrapped := fmt.Errorf("predict churn: %w", base)

	if !IsSchemaMismatch(wrapped) {
		t.Fatalf("IsSchemaMismatch(%v) = false, want true", wrapped)
	}
	if IsInvalidInput(wrapped) {
		t.Errorf("IsInvalidInput(%v) = true, want false", wrapped)
	}
	if got := GetDomainError(wrapped); got != base {
		t.Errorf("GetDomainError() = %v, want %v", got, base)
	}
	if got := ErrorCode(wrapped); got != ErrorCodeSchemaMismatch {
		t.Errorf("ErrorCode() = %q, want %q", got, ErrorCodeSchemaMismatch)
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("open model.json: no such file")
	err := WrapDomainError(ModuleArtifact, ErrorCodeArtifactLoad, "load model", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false")
	}
	if want := "load model: open model.json: no such file"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsArtifactLoadFailure(err) {
		t.Errorf("IsArtifactLoadFailure() = false")
	}
}

func TestErrorCode_PlainError(t *testing.T) {
	if got := ErrorCode(nil); got != "" {
		t.Errorf("ErrorCode(nil) = %q", got)
	}
	if got := ErrorCode(errors.New("boom")); got != ErrorCodeTransformFailure {
		t.Errorf("ErrorCode(plain) = %q, want %q", got, ErrorCodeTransformFailure)
	}
}

func TestIsStoreNotFound(t *testing.T) {
	if !IsStoreNotFound(fmt.Errorf("get: %w", ErrStoreNotFound)) {
		t.Error("IsStoreNotFound(wrapped ErrStoreNotFound) = false")
	}
	other := NewDomainError(ModuleArtifact, ErrorCodeNotFound, "not found")
	if IsStoreNotFound(other) {
		t.Error("IsStoreNotFound should only match the store module")
	}
}
