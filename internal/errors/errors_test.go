package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("missing required fields", "trackingId", "url")
	expected := "validation failed: missing required fields: trackingId, url"

	if err.Error() != expected {
		t.Errorf("expected %q but got %q", expected, err.Error())
	}

	bare := NewValidationError("reason is required")
	if bare.Error() != "validation failed: reason is required" {
		t.Errorf("unexpected message %q", bare.Error())
	}
}

func TestIdentityErrorUnwrap(t *testing.T) {
	base := stderrors.New("session file missing")
	err := NewIdentityError("no admin id", base)

	if !stderrors.Is(err, base) {
		t.Error("expected IdentityError to unwrap to its cause")
	}
	if !IsIdentity(fmt.Errorf("save: %w", err)) {
		t.Error("expected IsIdentity to see through wrapping")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "transport failure",
			err:      NewAPIError("PUT", "/tindakan/1", 0, "", stderrors.New("connection refused")),
			expected: "backend error: PUT /tindakan/1: connection refused",
		},
		{
			name:     "status with body",
			err:      NewAPIError("PUT", "/tindakan/1", 500, "boom", nil),
			expected: "backend error: PUT /tindakan/1 returned 500: boom",
		},
		{
			name:     "status only",
			err:      NewAPIError("GET", "/reports/1", 404, "", nil),
			expected: "backend error: GET /reports/1 returned 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q but got %q", tt.expected, got)
			}
		})
	}
}

func TestClassifiers(t *testing.T) {
	rateErr := fmt.Errorf("request: %w", NewRateLimitError("PUT-/tindakan/1"))

	if !IsRateLimited(rateErr) {
		t.Error("expected IsRateLimited to return true")
	}
	if IsAPI(rateErr) {
		t.Error("expected IsAPI to return false for a rate limit error")
	}
	if !IsStep(NewStepError("reject", "Ditutup")) {
		t.Error("expected IsStep to return true for StepError")
	}
	if !IsBusy(fmt.Errorf("advance: %w", ErrBusy)) {
		t.Error("expected IsBusy to see through wrapping")
	}
	if IsValidation(nil) {
		t.Error("expected IsValidation(nil) to be false")
	}
}
