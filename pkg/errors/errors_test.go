package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("test error")
	if err == nil {
		t.Fatal("New() returned nil")
	}

	if !strings.Contains(err.Error(), "test error") {
		t.Errorf("Expected error message to contain 'test error', got: %s", err.Error())
	}

	if err.Location() == "" {
		t.Error("Location should not be empty")
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")
	err := Wrap(baseErr, "wrapped")

	if err == nil {
		t.Fatal("Wrap() returned nil")
	}

	if !strings.Contains(err.Error(), "wrapped") {
		t.Errorf("Expected error message to contain 'wrapped', got: %s", err.Error())
	}

	if !strings.Contains(err.Error(), "base error") {
		t.Errorf("Expected error message to contain 'base error', got: %s", err.Error())
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "wrapped"); err != nil {
		t.Errorf("Wrap(nil) should return nil, got: %v", err)
	}
}

func TestWithField(t *testing.T) {
	err := New("test error").WithField("key", "value")

	fields := err.GetFields()
	if len(fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(fields))
	}

	if fields["key"] != "value" {
		t.Errorf("Expected field['key'] = 'value', got: %v", fields["key"])
	}
}

func TestWithCode(t *testing.T) {
	err := New("test error").WithCode("SYNTHESIS_FAILED")

	if err.GetCode() != "SYNTHESIS_FAILED" {
		t.Errorf("Expected code SYNTHESIS_FAILED, got: %s", err.GetCode())
	}
}

func TestIsSentinel(t *testing.T) {
	err := Wrap(ErrSynthesisTimeout, "chunk 2 failed")

	if !errors.Is(err, ErrSynthesisTimeout) {
		t.Error("Wrapped error should match its sentinel")
	}

	if errors.Is(err, ErrSynthesisTransport) {
		t.Error("Wrapped error should not match an unrelated sentinel")
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid session", ErrInvalidSession, http.StatusBadRequest},
		{"synthesis timeout", ErrSynthesisTimeout, http.StatusGatewayTimeout},
		{"generation failure", ErrScriptGeneration, http.StatusBadGateway},
		{"wrapped sentinel", Wrap(ErrUnavailable, "probe failed"), http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("HTTPStatusFromError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Wrap(ErrInvalidSession, "missing events").WithField("session_id", "abc"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "missing events") {
		t.Errorf("Response body should contain the message, got: %s", body)
	}
	if !strings.Contains(body, "session_id") {
		t.Errorf("Response body should contain context fields, got: %s", body)
	}
}
