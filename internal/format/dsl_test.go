package format

import "testing"

func TestParseQiskitLikeDSL(t *testing.T) {
	src := "qc = QuantumCircuit(2, 2)\nqc.h(0)\nqc.cx(0, 1)\nqc.measure(0, 0)\n"
	circuit, err := ParseQiskitLikeDSL(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if circuit.NumQubits != 2 {
		t.Errorf("expected 2 qubits, got %d", circuit.NumQubits)
	}
	if len(circuit.Gates) != 3 {
		t.Fatalf("expected 3 gates, got %d", len(circuit.Gates))
	}
	if circuit.Gates[0].Name != "H" || circuit.Gates[1].Name != "CX" {
		t.Errorf("unexpected gate names: %v, %v", circuit.Gates[0].Name, circuit.Gates[1].Name)
	}
}

func TestParseQiskitLikeDSLRejectsEmpty(t *testing.T) {
	if _, err := ParseQiskitLikeDSL("# just a comment\n"); err == nil {
		t.Fatal("expected error for no recognizable statements")
	}
}

func TestParseQiskitLikeDSLRejectsOversizedCircuit(t *testing.T) {
	_, err := ParseQiskitLikeDSL("qc = QuantumCircuit(100, 100)\nqc.h(0)\n")
	if err == nil {
		t.Fatal("expected error for circuit exceeding qubit limit")
	}
}

func TestParseBraketLikeDSL(t *testing.T) {
	src := "Circuit()\n.h(0)\n.cnot(0, 1)\n"
	circuit, err := ParseBraketLikeDSL(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if circuit.NumQubits != 2 {
		t.Errorf("expected 2 qubits inferred from max touched index, got %d", circuit.NumQubits)
	}
	if len(circuit.Gates) != 2 {
		t.Fatalf("expected 2 gates, got %d", len(circuit.Gates))
	}
}

func TestParseBraketLikeDSLRejectsEmpty(t *testing.T) {
	if _, err := ParseBraketLikeDSL("# nothing here\n"); err == nil {
		t.Fatal("expected error for no recognizable statements")
	}
}

func TestParseQrispLikeDSL(t *testing.T) {
	src := "qv = QuantumVariable(4)\nh(qv[0])\ncx(qv[0], qv[1])\n"
	circuit, err := ParseQrispLikeDSL(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if circuit.NumQubits != 4 {
		t.Errorf("expected 4 qubits, got %d", circuit.NumQubits)
	}
	if len(circuit.Gates) != 2 {
		t.Fatalf("expected 2 gates, got %d", len(circuit.Gates))
	}
	if len(circuit.Gates[1].Qubits) != 2 {
		t.Errorf("expected cx gate to reference 2 qubits, got %v", circuit.Gates[1].Qubits)
	}
}

func TestParseQrispLikeDSLRejectsOversizedCircuit(t *testing.T) {
	_, err := ParseQrispLikeDSL("qv = QuantumVariable(100)\nh(qv[0])\n")
	if err == nil {
		t.Fatal("expected error for circuit exceeding qubit limit")
	}
}
