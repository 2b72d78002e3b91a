package transpiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/perclft/qpilot/internal/domain"
)

// Grounded on backend/backends/backends.go's RigettiBackend.circuitToQuil.

var quilGateMap = map[string]string{
	"H": "H", "X": "X", "Y": "Y", "Z": "Z",
	"CNOT": "CNOT", "CX": "CNOT", "CZ": "CZ", "SWAP": "SWAP",
	"RX": "RX", "RY": "RY", "RZ": "RZ",
}

// CircuitToQuil renders a circuit as a quil-like textual IR.
func CircuitToQuil(c *domain.Circuit) (string, error) {
	var b strings.Builder
	for _, g := range c.Gates {
		name, ok := quilGateMap[strings.ToUpper(g.Name)]
		if !ok {
			name = strings.ToUpper(g.Name)
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
		for _, q := range g.Qubits {
			fmt.Fprintf(&b, " %d", q)
		}
		b.WriteByte('\n')
	}
	for i := 0; i < c.NumQubits; i++ {
		fmt.Fprintf(&b, "MEASURE %d ro[%d]\n", i, i)
	}
	return b.String(), nil
}

var (
	quilGateLineRe = regexp.MustCompile(`^([A-Z]+)(?:\(([^)]*)\))?\s+(.+)$`)
	quilMeasureRe  = regexp.MustCompile(`^MEASURE\s+(\d+)\s+ro\[(\d+)\]$`)
)

// ParseQuil parses the quil-like textual IR into a native circuit.
func ParseQuil(source string) (*domain.Circuit, error) {
	lines := strings.Split(source, "\n")
	circuit := &domain.Circuit{}
	maxQubit := -1
	for _, raw := range lines {
		l := strings.TrimSpace(raw)
		if l == "" {
			continue
		}
		if m := quilMeasureRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n > maxQubit {
				maxQubit = n
			}
			continue
		}
		if m := quilGateLineRe.FindStringSubmatch(l); m != nil {
			name := m[1]
			var qubits []int
			for _, tok := range strings.Fields(m[3]) {
				if n, err := strconv.Atoi(tok); err == nil {
					qubits = append(qubits, n)
					if n > maxQubit {
						maxQubit = n
					}
				}
			}
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
	if maxQubit < 0 {
		return nil, fmt.Errorf("no recognizable quil statements found")
	}
	circuit.NumQubits = maxQubit + 1
	circuit.Registers = []int{circuit.NumQubits}
	return circuit, nil
}

// QuilToCircuitIR parses quil text into the native circuit pivot.
func QuilToCircuitIR(input any) (any, error) {
	source, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("QuilToCircuitIR expects a string, got %T", input)
	}
	return ParseQuil(source)
}

// CircuitIRToQuil renders the native circuit pivot to quil text.
func CircuitIRToQuil(input any) (any, error) {
	circuit, ok := input.(*domain.Circuit)
	if !ok {
		return nil, fmt.Errorf("CircuitIRToQuil expects *domain.Circuit, got %T", input)
	}
	return CircuitToQuil(circuit)
}
