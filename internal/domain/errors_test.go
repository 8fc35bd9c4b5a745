package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Validation error",
			code:      ErrCodeValidation,
			message:   "Invalid onboarding answers",
			details:   "validation error for field 'dateOfBirth': date of birth is required",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrCodeDatabase,
			message:   "Database connection failed",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			// Check that timestamp is recent (within last minute)
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("weeksPregnant", "must be between 0 and 45", 50)

	if err.Field != "weeksPregnant" {
		t.Errorf("Expected field weeksPregnant, got %s", err.Field)
	}
	if err.Value != 50 {
		t.Errorf("Expected value 50, got %v", err.Value)
	}

	expectedError := "validation error for field 'weeksPregnant': must be between 0 and 45"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}
}

func TestCatalogError(t *testing.T) {
	tests := []struct {
		name     string
		err      *CatalogError
		expected string
	}{
		{"Catalog level", NewCatalogError("", "version", "catalog version is required"),
			"catalog error: catalog version is required"},
		{"Rule level", NewCatalogError("lung-cancer-screening", "", "duplicate rule id"),
			"catalog error in rule 'lung-cancer-screening': duplicate rule id"},
		{"Field level", NewCatalogError("lung-cancer-screening", "policy.years", "PERIODIC requires a positive interval"),
			"catalog error in rule 'lung-cancer-screening' field 'policy.years': PERIODIC requires a positive interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("scheduling: %w", NewNotFoundError("screening", "aaa-screening"))

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected errors.Is(err, ErrNotFound) to hold for %v", err)
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected a *NotFoundError in %v", err)
	}
	if notFound.Kind != "screening" || notFound.ID != "aaa-screening" {
		t.Errorf("Unexpected fields %+v", notFound)
	}
	if notFound.Error() != "screening 'aaa-screening' not found" {
		t.Errorf("Unexpected message %q", notFound.Error())
	}
}

func TestErrorConstants(t *testing.T) {
	constants := map[string]string{
		"ErrCodeInvalidInput":   ErrCodeInvalidInput,
		"ErrCodeValidation":     ErrCodeValidation,
		"ErrCodeNotFound":       ErrCodeNotFound,
		"ErrCodeCatalog":        ErrCodeCatalog,
		"ErrCodeDatabase":       ErrCodeDatabase,
		"ErrCodeRateLimit":      ErrCodeRateLimit,
		"ErrCodeUnavailable":    ErrCodeUnavailable,
		"ErrCodeInternalServer": ErrCodeInternalServer,
	}

	expectedValues := map[string]string{
		"ErrCodeInvalidInput":   "INVALID_INPUT",
		"ErrCodeValidation":     "VALIDATION_ERROR",
		"ErrCodeNotFound":       "NOT_FOUND",
		"ErrCodeCatalog":        "CATALOG_ERROR",
		"ErrCodeDatabase":       "DATABASE_ERROR",
		"ErrCodeRateLimit":      "RATE_LIMIT_EXCEEDED",
		"ErrCodeUnavailable":    "SERVICE_UNAVAILABLE",
		"ErrCodeInternalServer": "INTERNAL_SERVER_ERROR",
	}

	for name, actual := range constants {
		expected := expectedValues[name]
		if actual != expected {
			t.Errorf("Expected %s to be %s, got %s", name, expected, actual)
		}
	}
}
