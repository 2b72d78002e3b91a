package transpiler

import (
	"fmt"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/format"
)

// dslEdge adapts a format.Preprocessor into an EdgeFunc from the DSL's own
// format tag to the CIRCUIT_IR pivot: it is the edge whose "first step"
// (spec.md §4.2) receives the job's raw program source and must itself
// decide to run the pre-processor, matching the orchestrator contract in
// spec.md §4.5 step 4 ("apply to either the raw source or the pre-parsed
// object depending on the pipeline's first edge").
func dslEdge(pp format.Preprocessor) EdgeFunc {
	return func(input any) (any, error) {
		source, ok := input.(string)
		if !ok {
			return nil, fmt.Errorf("DSL edge expects a string source, got %T", input)
		}
		return pp(source)
	}
}

// NewStandardGraph builds the graph connecting every closed-enumeration
// format (spec.md §4.1) to the CIRCUIT_IR pivot, plus the pivot's
// round-trip to the two text targets pilots submit (QASM3, Quil). This
// keeps the edge set linear in the number of formats (spec.md §4.2
// rationale) while giving every (src, pilot-accepted-target) pair a path.
func NewStandardGraph() *Graph {
	g := New()

	g.RegisterEdge(domain.FormatQASM2, domain.FormatQASM3, QASM2ToQASM3)
	g.RegisterEdge(domain.FormatQASM3, FormatCircuitIR, QASM3ToCircuitIR)
	g.RegisterEdge(domain.FormatQASM2, FormatCircuitIR, func(input any) (any, error) {
		asQASM3, err := QASM2ToQASM3(input)
		if err != nil {
			return nil, err
		}
		return QASM3ToCircuitIR(asQASM3)
	})
	g.RegisterEdge(FormatCircuitIR, domain.FormatQASM3, CircuitIRToQASM3)

	g.RegisterEdge(domain.FormatQuil, FormatCircuitIR, QuilToCircuitIR)
	g.RegisterEdge(FormatCircuitIR, domain.FormatQuil, CircuitIRToQuil)

	g.RegisterEdge(domain.FormatDSLQiskit, FormatCircuitIR, dslEdge(format.ParseQiskitLikeDSL))
	g.RegisterEdge(domain.FormatDSLBraket, FormatCircuitIR, dslEdge(format.ParseBraketLikeDSL))
	g.RegisterEdge(domain.FormatDSLQrisp, FormatCircuitIR, dslEdge(format.ParseQrispLikeDSL))

	return g
}
