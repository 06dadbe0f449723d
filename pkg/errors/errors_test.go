package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict, detailsOK: true},
		{code: CodeOffline, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusBadGateway, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeInternal, cause, "persist snapshot")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected cause in message, got %q", err.Error())
	}

	outer := fmt.Errorf("add item: %w", err)
	if got := CodeOf(outer); got != CodeInternal {
		t.Fatalf("expected internal code through fmt wrap, got %s", got)
	}
	if !IsCode(outer, CodeInternal) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatal("nil error must not match any code")
	}
}

func TestCodeOfUntypedError(t *testing.T) {
	if got := CodeOf(stdErrors.New("boom")); got != CodeInternal {
		t.Fatalf("expected internal for untyped error, got %s", got)
	}
	if As(nil) != nil {
		t.Fatal("As(nil) must return nil")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "quantity must be at least 1").WithDetails(map[string]any{"quantity": 0})
	details, ok := err.Details().(map[string]any)
	if !ok || details["quantity"] != 0 {
		t.Fatalf("unexpected details %#v", err.Details())
	}
}
