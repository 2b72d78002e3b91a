package domain

// Format is a circuit source-format tag. The set is closed; new formats
// require a format.Registry entry and at least one transpiler edge
// (spec.md §4.1/§4.2).
type Format string

const (
	FormatQASM2      Format = "QASM2"
	FormatQASM3      Format = "QASM3"
	FormatDSLQiskit  Format = "DSL_QISKIT_LIKE"
	FormatDSLBraket  Format = "DSL_BRAKET_LIKE"
	FormatDSLQrisp   Format = "DSL_QRISP_LIKE"
	FormatQuil       Format = "QUIL"
)

// AllFormats enumerates the closed format set, used to seed the registry
// and to drive invariant 1 (transpiler idempotence on self-target) in tests.
func AllFormats() []Format {
	return []Format{FormatQASM2, FormatQASM3, FormatDSLQiskit, FormatDSLBraket, FormatDSLQrisp, FormatQuil}
}
