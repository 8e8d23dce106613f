package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"roombook/shared/failure"
	"testing"
)

func TestFailure_Error(t *testing.T) {
	f := &failure.Failure{
		Code:    http.StatusBadRequest,
		Message: "end must be after start",
	}

	if f.Error() != "end must be after start" {
		t.Errorf("expected error message to be 'end must be after start', got %s", f.Error())
	}
}

func TestBadRequest(t *testing.T) {
	if failure.BadRequest(nil) != nil {
		t.Error("expected nil for nil input")
	}

	result := failure.BadRequest(errors.New("validation failed"))

	f, ok := result.(*failure.Failure)
	if !ok {
		t.Fatalf("expected result to be *failure.Failure, got %T", result)
	}

	if f.Code != http.StatusBadRequest || f.Message != "validation failed" {
		t.Errorf("unexpected failure %+v", f)
	}
}

func TestBookingTaxonomyCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation", err: failure.BadRequestFromString("phone is malformed"), code: http.StatusBadRequest},
		{name: "not found", err: failure.NotFound("booking not found"), code: http.StatusNotFound},
		{name: "overlap", err: failure.Conflict("room already booked"), code: http.StatusConflict},
		{name: "capacity", err: failure.CapacityExceeded("capacity exceeded"), code: http.StatusUnprocessableEntity},
		{name: "forbidden", err: failure.Forbidden("invalid api key"), code: http.StatusForbidden},
		{name: "unauthorized", err: failure.Unauthorized("missing api key"), code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failure.GetCode(tt.err); got != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, got)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected int
	}{
		{
			name:     "failure error",
			input:    &failure.Failure{Code: http.StatusBadRequest, Message: "test"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "wrapped failure error",
			input:    fmt.Errorf("failed to create booking: %w", failure.Conflict("overlap")),
			expected: http.StatusConflict,
		},
		{
			name:     "regular error",
			input:    errors.New("regular error"),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "nil error",
			input:    nil,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := failure.GetCode(tt.input)
			if result != tt.expected {
				t.Errorf("expected code to be %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", failure.CapacityExceeded("31 > 30"))

	if !failure.IsCapacityExceeded(wrapped) {
		t.Error("expected wrapped capacity failure to be detected")
	}

	if failure.IsConflict(wrapped) {
		t.Error("capacity failure must not be reported as conflict")
	}

	if !failure.IsNotFound(failure.NotFound("x")) {
		t.Error("expected not found to be detected")
	}

	if !failure.IsBadRequest(failure.BadRequestFromString("x")) {
		t.Error("expected bad request to be detected")
	}

	if failure.IsNotFound(errors.New("plain")) {
		t.Error("plain errors carry no failure code")
	}
}
