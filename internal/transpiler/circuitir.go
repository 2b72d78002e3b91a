package transpiler

import "github.com/perclft/qpilot/internal/domain"

// FormatCircuitIR is an internal pivot node in the transpiler graph: the
// wire form of a *domain.Circuit value. It is never a QuantumProgram's
// source format (that enumeration stays closed per spec.md §4.1) but a
// pilot may list it among its supported formats when it executes a native
// domain.Circuit directly (as the local simulator pilot does), the same
// way the source system's pilots execute an already-instantiated SDK
// circuit object rather than a string. Routing every other format through
// this one node keeps the graph's edge count linear in the number of
// formats rather than quadratic (spec.md §4.2 rationale: "adding a new
// format requires only edges to/from at least one existing node").
const FormatCircuitIR domain.Format = "CIRCUIT_IR"
