package format

import (
	"testing"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

func TestNewStandardRegistersAllFormats(t *testing.T) {
	r := NewStandard()
	for _, f := range domain.AllFormats() {
		if !r.IsKnown(f) {
			t.Errorf("expected format %q to be registered", f)
		}
	}
}

func TestPreprocessorUnknownFormat(t *testing.T) {
	r := New()
	_, err := r.Preprocessor(domain.FormatQASM3)
	if qerr.KindOf(err) != qerr.UnknownFormat {
		t.Fatalf("expected UnknownFormat, got %v", err)
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := New()
	calls := 0
	r.Register(domain.FormatQASM3, func(source string) (*domain.Circuit, error) {
		calls++
		return nil, nil
	})
	r.Register(domain.FormatQASM3, func(source string) (*domain.Circuit, error) {
		return &domain.Circuit{NumQubits: 1}, nil
	})

	pp, err := r.Preprocessor(domain.FormatQASM3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	circuit, err := pp("anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if circuit == nil || circuit.NumQubits != 1 {
		t.Errorf("expected replaced preprocessor to run, got %+v", circuit)
	}
	if calls != 0 {
		t.Errorf("expected original preprocessor to never run, got %d calls", calls)
	}
}
