// Package local implements the in-process statevector pilot: a small
// bounded evaluator, never a general-purpose simulator (SPEC_FULL.md §4.3),
// grounded on backend/backends/backends.go's LocalSimulatorBackend for
// shape and qunicorn_core's base_pilot.py for the Pilot contract it fills.
package local

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"strings"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

// MaxQubits bounds the statevector evaluator: 2^24 complex128 amplitudes is
// already 256MiB, past which this is no longer a "small bounded evaluator."
const MaxQubits = 24

// Simulate runs circuit shots times and returns raw measurement counts
// keyed by binary bitstring (big-endian, qubit 0 is the leftmost bit),
// matching the key shape internal/result.BinaryCountsToHex expects.
func Simulate(circuit *domain.Circuit, shots int, rng *rand.Rand) (map[string]int, error) {
	if circuit.NumQubits <= 0 {
		return nil, qerr.New(qerr.Validation, "circuit has no qubits")
	}
	if circuit.NumQubits > MaxQubits {
		return nil, qerr.New(qerr.Validation, fmt.Sprintf("circuit uses %d qubits, exceeds local simulator bound of %d", circuit.NumQubits, MaxQubits))
	}
	if shots <= 0 {
		return nil, qerr.New(qerr.Validation, "shots must be positive")
	}

	state, err := evolve(circuit)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, len(state))
	var total float64
	for i, amp := range state {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		probs[i] = p
		total += p
	}
	if total == 0 {
		return nil, qerr.New(qerr.Internal, "statevector has zero norm after evolution")
	}
	// Normalize defensively against float drift across many gate applications.
	for i := range probs {
		probs[i] /= total
	}

	cumulative := make([]float64, len(probs))
	running := 0.0
	for i, p := range probs {
		running += p
		cumulative[i] = running
	}

	counts := make(map[string]int)
	n := circuit.NumQubits
	for s := 0; s < shots; s++ {
		r := rng.Float64()
		idx := sort.SearchFloat64s(cumulative, r)
		if idx == len(cumulative) {
			idx = len(cumulative) - 1
		}
		key := bitstring(idx, n)
		counts[key]++
	}
	return counts, nil
}

// evolve builds the |0...0> statevector and applies every gate in order.
func evolve(circuit *domain.Circuit) ([]complex128, error) {
	n := circuit.NumQubits
	dim := 1 << uint(n)
	state := make([]complex128, dim)
	state[0] = 1

	for _, g := range circuit.Gates {
		var err error
		state, err = applyGate(state, n, g)
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

func applyGate(state []complex128, n int, g domain.Gate) ([]complex128, error) {
	name := strings.ToUpper(g.Name)
	switch name {
	case "MEASURE", "BARRIER":
		return state, nil
	case "H":
		return applySingleQubit(state, n, g.Qubits, matHadamard)
	case "X":
		return applySingleQubit(state, n, g.Qubits, matPauliX)
	case "Y":
		return applySingleQubit(state, n, g.Qubits, matPauliY)
	case "Z":
		return applySingleQubit(state, n, g.Qubits, matPauliZ)
	case "S":
		return applySingleQubit(state, n, g.Qubits, matPhase(math.Pi/2))
	case "SDG":
		return applySingleQubit(state, n, g.Qubits, matPhase(-math.Pi/2))
	case "T":
		return applySingleQubit(state, n, g.Qubits, matPhase(math.Pi/4))
	case "TDG":
		return applySingleQubit(state, n, g.Qubits, matPhase(-math.Pi/4))
	case "RX":
		return applySingleQubit(state, n, g.Qubits, matRX(param(g, 0)))
	case "RY":
		return applySingleQubit(state, n, g.Qubits, matRY(param(g, 0)))
	case "RZ":
		return applySingleQubit(state, n, g.Qubits, matPhase(param(g, 0)))
	case "CNOT", "CX":
		return applyControlled(state, n, g.Qubits, matPauliX)
	case "CZ":
		return applyControlled(state, n, g.Qubits, matPauliZ)
	case "SWAP":
		return applySwap(state, n, g.Qubits)
	default:
		return nil, qerr.New(qerr.Transpile, fmt.Sprintf("local simulator does not support gate %q", g.Name))
	}
}

func param(g domain.Gate, i int) float64 {
	if i < len(g.Params) {
		return g.Params[i]
	}
	return 0
}

// 2x2 gate matrix, row-major: [a b; c d].
type mat2 [4]complex128

var (
	matHadamard = mat2{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)}
	matPauliX   = mat2{0, 1, 1, 0}
	matPauliY   = mat2{0, -1i, 1i, 0}
	matPauliZ   = mat2{1, 0, 0, -1}
)

func matPhase(theta float64) mat2 {
	return mat2{1, 0, 0, cmplx.Exp(complex(0, theta))}
}

func matRX(theta float64) mat2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return mat2{c, s, s, c}
}

func matRY(theta float64) mat2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return mat2{c, -s, s, c}
}

func applySingleQubit(state []complex128, n int, qubits []int, m mat2) ([]complex128, error) {
	if len(qubits) != 1 {
		return nil, qerr.New(qerr.Transpile, "single-qubit gate requires exactly one qubit operand")
	}
	q, err := bitIndex(n, qubits[0])
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(state))
	mask := 1 << uint(q)
	for i := range state {
		if i&mask != 0 {
			continue
		}
		j := i | mask
		a0, a1 := state[i], state[j]
		out[i] = m[0]*a0 + m[1]*a1
		out[j] = m[2]*a0 + m[3]*a1
	}
	return out, nil
}

func applyControlled(state []complex128, n int, qubits []int, m mat2) ([]complex128, error) {
	if len(qubits) != 2 {
		return nil, qerr.New(qerr.Transpile, "controlled gate requires exactly two qubit operands")
	}
	control, err := bitIndex(n, qubits[0])
	if err != nil {
		return nil, err
	}
	target, err := bitIndex(n, qubits[1])
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(state))
	copy(out, state)
	cmask := 1 << uint(control)
	tmask := 1 << uint(target)
	for i := range state {
		if i&cmask == 0 || i&tmask != 0 {
			continue
		}
		j := i | tmask
		a0, a1 := state[i], state[j]
		out[i] = m[0]*a0 + m[1]*a1
		out[j] = m[2]*a0 + m[3]*a1
	}
	return out, nil
}

func applySwap(state []complex128, n int, qubits []int) ([]complex128, error) {
	if len(qubits) != 2 {
		return nil, qerr.New(qerr.Transpile, "swap gate requires exactly two qubit operands")
	}
	a, err := bitIndex(n, qubits[0])
	if err != nil {
		return nil, err
	}
	b, err := bitIndex(n, qubits[1])
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(state))
	copy(out, state)
	amask, bmask := 1<<uint(a), 1<<uint(b)
	for i := range state {
		aBit := i&amask != 0
		bBit := i&bmask != 0
		if aBit == bBit {
			continue
		}
		j := i ^ amask ^ bmask
		if i < j {
			out[i], out[j] = state[j], state[i]
		}
	}
	return out, nil
}

func bitIndex(n, qubit int) (int, error) {
	if qubit < 0 || qubit >= n {
		return 0, qerr.New(qerr.Transpile, fmt.Sprintf("qubit index %d out of range for %d-qubit circuit", qubit, n))
	}
	// Qubit 0 is the most significant bit of the basis-state index, matching
	// the big-endian bitstring convention the QASM/Quil renderers use.
	return n - 1 - qubit, nil
}

func bitstring(idx, n int) string {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		bit := (idx >> uint(n-1-i)) & 1
		if bit == 1 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
