package transpiler

import (
	"testing"

	"github.com/perclft/qpilot/internal/domain"
)

const bellPairQASM3 = `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
bit[2] c;

h q[0];
cx q[0], q[1];

c = measure q;
`

func TestParseQASMBellPair(t *testing.T) {
	circuit, err := ParseQASM(bellPairQASM3)
	if err != nil {
		t.Fatalf("ParseQASM failed: %v", err)
	}
	if circuit.NumQubits != 2 {
		t.Errorf("expected 2 qubits, got %d", circuit.NumQubits)
	}
	if len(circuit.Gates) != 2 {
		t.Fatalf("expected 2 gates, got %d", len(circuit.Gates))
	}
	if circuit.Gates[0].Name != "H" || circuit.Gates[1].Name != "CNOT" {
		t.Errorf("unexpected gate names: %v, %v", circuit.Gates[0].Name, circuit.Gates[1].Name)
	}
	if len(circuit.Gates[1].Qubits) != 2 {
		t.Errorf("expected 2-qubit CNOT target list, got %v", circuit.Gates[1].Qubits)
	}
}

func TestParseQASMRejectsMissingQubitDecl(t *testing.T) {
	_, err := ParseQASM("OPENQASM 3.0;\nh q[0];\n")
	if err == nil {
		t.Fatal("expected error for missing qubit declaration")
	}
}

func TestCircuitToQASM3RoundTrip(t *testing.T) {
	circuit := &domain.Circuit{
		NumQubits: 2,
		Registers: []int{2},
		Gates: []domain.Gate{
			{Name: "H", Qubits: []int{0}},
			{Name: "CNOT", Qubits: []int{0, 1}},
		},
	}

	rendered, err := CircuitToQASM3(circuit)
	if err != nil {
		t.Fatalf("CircuitToQASM3 failed: %v", err)
	}

	reparsed, err := ParseQASM(rendered)
	if err != nil {
		t.Fatalf("re-parsing rendered QASM failed: %v\nrendered:\n%s", err, rendered)
	}
	if reparsed.NumQubits != circuit.NumQubits {
		t.Errorf("round trip changed qubit count: got %d, want %d", reparsed.NumQubits, circuit.NumQubits)
	}
	if len(reparsed.Gates) != len(circuit.Gates) {
		t.Errorf("round trip changed gate count: got %d, want %d", len(reparsed.Gates), len(circuit.Gates))
	}
}

func TestQASM2ToQASM3RejectsNonString(t *testing.T) {
	if _, err := QASM2ToQASM3(42); err == nil {
		t.Fatal("expected type error for non-string input")
	}
}

func TestQASM3ToCircuitIR(t *testing.T) {
	out, err := QASM3ToCircuitIR(bellPairQASM3)
	if err != nil {
		t.Fatalf("QASM3ToCircuitIR failed: %v", err)
	}
	circuit, ok := out.(*domain.Circuit)
	if !ok {
		t.Fatalf("expected *domain.Circuit, got %T", out)
	}
	if circuit.NumQubits != 2 {
		t.Errorf("expected 2 qubits, got %d", circuit.NumQubits)
	}
}

func TestCircuitIRToQASM3RejectsWrongType(t *testing.T) {
	if _, err := CircuitIRToQASM3("not a circuit"); err == nil {
		t.Fatal("expected type error for non-circuit input")
	}
}
