package ionq

import (
	"strconv"
	"strings"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

var gateNameToIonQ = map[string]string{
	"H": "h", "X": "x", "Y": "y", "Z": "z",
	"CNOT": "cnot", "CX": "cnot", "CZ": "zz", "SWAP": "swap",
	"RX": "rx", "RY": "ry", "RZ": "rz",
}

// circuitToIonQ renders a circuit as IonQ's native gate-list wire format,
// grounded on backend/backends/backends.go's IonQBackend.circuitToIonQ.
func circuitToIonQ(c *domain.Circuit) map[string]any {
	gates := make([]map[string]any, 0, len(c.Gates))
	for _, g := range c.Gates {
		name, ok := gateNameToIonQ[strings.ToUpper(g.Name)]
		if !ok {
			name = strings.ToLower(g.Name)
		}
		entry := map[string]any{"gate": name, "targets": g.Qubits}
		if len(g.Params) > 0 {
			entry["rotation"] = g.Params[0]
		}
		gates = append(gates, entry)
	}
	return map[string]any{"qubits": c.NumQubits, "circuit": gates}
}

// decimalCountsToInt converts IonQ's decimal-string-keyed histogram (JSON
// object keys are always strings) into the {int: count} shape
// internal/result.IntegerCountsToHex expects.
func decimalCountsToInt(counts map[string]int) (map[int]int, error) {
	out := make(map[int]int, len(counts))
	for k, v := range counts {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, qerr.Wrap(qerr.Internal, "IonQ histogram key is not decimal", err)
		}
		out[n] = v
	}
	return out, nil
}
