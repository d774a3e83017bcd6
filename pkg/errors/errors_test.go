package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWithDetailDoesNotMutatePredefined(t *testing.T) {
	err := ErrArtifactNotFound.WithDetail("R1")

	if ErrArtifactNotFound.Detail != "" {
		t.Fatalf("predefined error mutated: %q", ErrArtifactNotFound.Detail)
	}
	if err.Error() != "[3003] could not find artifact: R1" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, ErrArtifactNotFound) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, ErrJobNotFound) {
		t.Error("errors.Is matched a different code")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, CodeQueueError, "failed to enqueue job")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable")
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d", err.HTTPStatus)
	}

	outer := fmt.Errorf("submit: %w", ErrManualLinkOverride.WithError(cause))
	if !IsAppError(outer) {
		t.Fatal("IsAppError should see through fmt wrapping")
	}
	if got := AsAppError(outer); got.Code != CodeManualLinkOverride || got.HTTPStatus != http.StatusConflict {
		t.Errorf("AsAppError = %+v", got)
	}
}

func TestAsAppErrorFallsBackToUnknown(t *testing.T) {
	plain := stderrors.New("boom")
	if IsAppError(plain) {
		t.Fatal("plain error reported as AppError")
	}
	got := AsAppError(plain)
	if got.Code != CodeUnknown || got.HTTPStatus != http.StatusInternalServerError || got.Err != plain {
		t.Errorf("AsAppError(plain) = %+v", got)
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrDuplicateBatchEntry, http.StatusBadRequest},
		{ErrInvalidAppEntity, http.StatusBadRequest},
		{ErrProjectVersionNotFound, http.StatusNotFound},
		{ErrJobNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrIntegrityViolation, http.StatusConflict},
		{ErrServiceUnavailable, http.StatusServiceUnavailable},
		{ErrVersionContract, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if tt.err.HTTPStatus != tt.want {
			t.Errorf("%s status = %d, want %d", tt.err.Code, tt.err.HTTPStatus, tt.want)
		}
	}
}
