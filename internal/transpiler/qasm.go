package transpiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/perclft/qpilot/internal/domain"
)

// The following renderers/parsers are grounded on
// backend/backends/backends.go's IBMQuantumBackend.circuitToQASM and
// RigettiBackend.circuitToQuil (text generation), with parsing added in the
// same bounded, regex-based spirit as internal/format's DSL evaluators —
// never an interpreter, just pattern recognition over a known text shape.

const maxQASMLines = 8192

var qasmGateMap = map[string]string{
	"H": "h", "X": "x", "Y": "y", "Z": "z",
	"CNOT": "cx", "CX": "cx", "CZ": "cz", "SWAP": "swap",
	"RX": "rx", "RY": "ry", "RZ": "rz",
	"S": "s", "T": "t", "SDG": "sdg", "TDG": "tdg",
}

var qasmGateMapReverse = func() map[string]string {
	m := make(map[string]string, len(qasmGateMap))
	for k, v := range qasmGateMap {
		m[v] = k
	}
	// CNOT and CX both render as "cx"; pin the parse-back name so it does
	// not depend on map iteration order.
	m["cx"] = "CNOT"
	return m
}()

// CircuitToQASM3 renders a circuit as OpenQASM 3.
func CircuitToQASM3(c *domain.Circuit) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "OPENQASM 3.0;\ninclude \"stdgates.inc\";\nqubit[%d] q;\nbit[%d] c;\n\n",
		c.NumQubits, c.TotalClassicalBits())
	for _, g := range c.Gates {
		name, ok := qasmGateMap[strings.ToUpper(g.Name)]
		if !ok {
			name = strings.ToLower(g.Name)
		}
		if g.Name == "MEASURE" {
			continue
		}
		b.WriteString(name)
		if len(g.Params) > 0 {
			b.WriteByte('(')
			for i, p := range g.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%g", p)
			}
			b.WriteByte(')')
		}
		b.WriteByte(' ')
		for i, q := range g.Qubits {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "q[%d]", q)
		}
		b.WriteString(";\n")
	}
	b.WriteString("\nc = measure q;\n")
	return b.String(), nil
}

var (
	qasmQubitDeclRe = regexp.MustCompile(`qubit\[(\d+)\]`)
	qasmBitDeclRe   = regexp.MustCompile(`bit\[(\d+)\]`)
	qasmQregRe      = regexp.MustCompile(`qreg\s+\w+\[(\d+)\]`)
	qasmCregRe      = regexp.MustCompile(`creg\s+\w+\[(\d+)\]`)
	qasmGateLineRe  = regexp.MustCompile(`^([a-zA-Z]+)(?:\(([^)]*)\))?\s+(.+);$`)
	qasmQubitRefRe  = regexp.MustCompile(`\[(\d+)\]`)
)

// ParseQASM parses either OpenQASM 2 or 3 text (the two differ only in
// header syntax) into a native circuit.
func ParseQASM(source string) (*domain.Circuit, error) {
	lines := strings.Split(source, "\n")
	if len(lines) > maxQASMLines {
		return nil, fmt.Errorf("program has %d lines, exceeds bounded-evaluator limit %d", len(lines), maxQASMLines)
	}

	circuit := &domain.Circuit{}
	for _, raw := range lines {
		l := strings.TrimSpace(raw)
		if l == "" || strings.HasPrefix(l, "//") || strings.HasPrefix(l, "OPENQASM") || strings.HasPrefix(l, "include") {
			continue
		}
		if m := qasmQubitDeclRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			circuit.NumQubits = n
			continue
		}
		if m := qasmQregRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			circuit.NumQubits = n
			continue
		}
		if m := qasmBitDeclRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			circuit.Registers = []int{n}
			continue
		}
		if m := qasmCregRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			circuit.Registers = []int{n}
			continue
		}
		if strings.Contains(l, "measure") {
			continue
		}
		if m := qasmGateLineRe.FindStringSubmatch(l); m != nil {
			name := strings.ToUpper(m[1])
			canonical, ok := qasmGateMapReverse[strings.ToLower(m[1])]
			if ok {
				name = canonical
			}
			qubits := extractIndices(m[3])
			var params []float64
			if m[2] != "" {
				for _, p := range strings.Split(m[2], ",") {
					if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
						params = append(params, f)
					}
				}
			}
			circuit.Gates = append(circuit.Gates, domain.Gate{Name: name, Qubits: qubits, Params: params})
		}
	}
	if circuit.NumQubits == 0 {
		return nil, fmt.Errorf("no qubit/qreg declaration found in QASM source")
	}
	if len(circuit.Registers) == 0 {
		circuit.Registers = []int{circuit.NumQubits}
	}
	return circuit, nil
}

func extractIndices(raw string) []int {
	matches := qasmQubitRefRe.FindAllStringSubmatch(raw, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, _ := strconv.Atoi(m[1])
		out = append(out, n)
	}
	return out
}

// QASM2ToQASM3 parses OpenQASM 2 text with ParseQASM and re-renders the
// circuit with CircuitToQASM3. Lines ParseQASM does not recognise are
// dropped, and the output always ends by measuring every qubit.
func QASM2ToQASM3(input any) (any, error) {
	source, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("QASM2ToQASM3 expects a string, got %T", input)
	}
	circuit, err := ParseQASM(source)
	if err != nil {
		return nil, err
	}
	return CircuitToQASM3(circuit)
}

// QASM3ToCircuitIR parses OpenQASM 3 text into the native circuit pivot.
func QASM3ToCircuitIR(input any) (any, error) {
	source, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("QASM3ToCircuitIR expects a string, got %T", input)
	}
	return ParseQASM(source)
}

// CircuitIRToQASM3 renders the native circuit pivot back to OpenQASM 3
// text, used by remote pilots (IBM/Braket) that submit QASM.
func CircuitIRToQASM3(input any) (any, error) {
	circuit, ok := input.(*domain.Circuit)
	if !ok {
		return nil, fmt.Errorf("CircuitIRToQASM3 expects *domain.Circuit, got %T", input)
	}
	return CircuitToQASM3(circuit)
}
