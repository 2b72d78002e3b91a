// Package qerr defines the error taxonomy shared by every qpilot component.
//
// Every user-facing failure in qpilot carries a Kind so the HTTP layer can
// map it to a status code without re-inspecting error strings, the way the
// teacher pilots map failures to gRPC codes via status.Errorf.
package qerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for transport mapping and for orchestrator
// decisions (per-program vs per-job recovery).
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	Forbidden
	NotFound
	InvalidStateTransition
	UnsupportedJobType
	CancelUnsupported
	Transpile
	ProviderUnavailable
	UnknownFormat
	NotImplementedInSyncMode
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "ValidationError"
	case Unauthorized:
		return "Unauthorized"
	case Forbidden:
		return "Forbidden"
	case NotFound:
		return "NotFound"
	case InvalidStateTransition:
		return "InvalidStateTransition"
	case UnsupportedJobType:
		return "UnsupportedJobType"
	case CancelUnsupported:
		return "CancelUnsupported"
	case Transpile:
		return "TranspileError"
	case ProviderUnavailable:
		return "ProviderUnavailable"
	case UnknownFormat:
		return "UnknownFormat"
	case NotImplementedInSyncMode:
		return "NotImplementedInSyncMode"
	default:
		return "Internal"
	}
}

// HTTPStatus maps a Kind to the status code spec.md §6 assigns it.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation, UnknownFormat:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidStateTransition:
		return http.StatusConflict
	case UnsupportedJobType, CancelUnsupported, NotImplementedInSyncMode:
		return http.StatusNotImplemented
	case ProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a Kind-tagged error. Message is what an HTTP error body shows;
// the wrapped error (if any) is left out of that body. Error() joins Kind,
// Message and the wrapped error, and the orchestrator stores that full
// string in an ERROR result's data, with the Kind in its meta (§4.4/§7).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err, defaulting to Internal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
