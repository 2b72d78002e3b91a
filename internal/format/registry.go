// Package format holds the process-wide, write-once-at-startup format
// registry (spec.md §4.1, §9 "Global state"). Formats and their
// pre-processors are registered during initialization and never mutated
// once workers begin, the same rule spec.md states for the transpiler
// graph.
package format

import (
	"fmt"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

// Preprocessor lifts a source string into a native domain.Circuit. For
// formats whose wire form already is the value a transpiler edge expects,
// the registered preprocessor returns a nil circuit and the source string
// is used as-is. Grounded on
// qunicorn_core/core/transpiler/preprocessing_manager.py's PreProcessor
// type, minus the exec/eval: qpilot's DSL preprocessors are bounded
// parsers, never an interpreter (spec.md §9).
type Preprocessor func(source string) (*domain.Circuit, error)

// identity is used for formats whose wire form is already string-shaped
// and needed as-is by the first transpiler edge (e.g. QASM2 -> QASM3).
func identity(source string) (*domain.Circuit, error) {
	return nil, nil
}

// Registry enumerates known formats and their pre-processors. Queries are
// read-only after NewStandard (or the caller's Register calls) populates it.
type Registry struct {
	preprocessors map[domain.Format]Preprocessor
}

// New builds an empty registry; call Register for each known format before
// serving any request.
func New() *Registry {
	return &Registry{preprocessors: make(map[domain.Format]Preprocessor)}
}

// Register adds or replaces the pre-processor for a format. Idempotent:
// calling it twice for the same tag replaces the previous entry, mirroring
// transpiler.Graph.RegisterEdge's replace-on-duplicate rule.
func (r *Registry) Register(f domain.Format, pp Preprocessor) {
	r.preprocessors[f] = pp
}

// IsKnown reports whether f was registered.
func (r *Registry) IsKnown(f domain.Format) bool {
	_, ok := r.preprocessors[f]
	return ok
}

// Preprocessor returns the registered pre-processor for f, or
// UnknownFormat if f was never registered.
func (r *Registry) Preprocessor(f domain.Format) (Preprocessor, error) {
	pp, ok := r.preprocessors[f]
	if !ok {
		return nil, qerr.New(qerr.UnknownFormat, fmt.Sprintf("unknown circuit format %q", f))
	}
	return pp, nil
}

// NewStandard builds the registry seeded with every format in
// domain.AllFormats(). String-wire formats (QASM2/QASM3/QUIL) get the
// identity pre-processor; Python-embedded DSL tags get their bounded
// evaluator from internal/format's dsl.go.
func NewStandard() *Registry {
	r := New()
	r.Register(domain.FormatQASM2, identity)
	r.Register(domain.FormatQASM3, identity)
	r.Register(domain.FormatQuil, identity)
	r.Register(domain.FormatDSLQiskit, ParseQiskitLikeDSL)
	r.Register(domain.FormatDSLBraket, ParseBraketLikeDSL)
	r.Register(domain.FormatDSLQrisp, ParseQrispLikeDSL)
	return r
}
