package qerr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/perclft/qpilot/internal/qerr"
)

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := qerr.KindOf(errors.New("boom")); got != qerr.Internal {
		t.Fatalf("expected Internal, got %v", got)
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := qerr.New(qerr.NotFound, "device not found")
	wrapped := fmt.Errorf("lookup failed: %w", base)

	if got := qerr.KindOf(wrapped); got != qerr.NotFound {
		t.Fatalf("expected NotFound, got %v", got)
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := qerr.Wrap(qerr.ProviderUnavailable, "ibm call failed", underlying)

	if !errors.Is(err, underlying) {
		t.Fatalf("expected errors.Is to find underlying error")
	}
	if got := qerr.KindOf(err); got != qerr.ProviderUnavailable {
		t.Fatalf("expected ProviderUnavailable, got %v", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[qerr.Kind]int{
		qerr.Validation:              http.StatusBadRequest,
		qerr.UnknownFormat:           http.StatusBadRequest,
		qerr.Unauthorized:            http.StatusUnauthorized,
		qerr.Forbidden:               http.StatusForbidden,
		qerr.NotFound:                http.StatusNotFound,
		qerr.InvalidStateTransition:  http.StatusConflict,
		qerr.UnsupportedJobType:      http.StatusNotImplemented,
		qerr.CancelUnsupported:       http.StatusNotImplemented,
		qerr.NotImplementedInSyncMode: http.StatusNotImplemented,
		qerr.ProviderUnavailable:     http.StatusServiceUnavailable,
		qerr.Internal:                http.StatusInternalServerError,
	}

	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%v.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestErrorStringIncludesMessageAndWrapped(t *testing.T) {
	err := qerr.Wrap(qerr.Transpile, "bad gate", errors.New("unknown opcode"))
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}

	plain := qerr.New(qerr.Validation, "missing field")
	if plain.Error() == "" {
		t.Fatal("expected non-empty error string for unwrapped error")
	}
}
