package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/perclft/qpilot/internal/domain"
)

// The source system lifts each Python-embedded DSL into a native circuit
// object by exec'ing or eval'ing the program string inside a shared
// interpreter (qunicorn_core/core/transpiler/preprocessing_manager.py:
// preprocess_qiskit/preprocess_braket/preprocess_qrisp). spec.md §9 requires
// replacing that with a bounded evaluator that is the only entry point to
// untrusted program text, enforces size limits, and never shares state
// across jobs. qpilot's bounded evaluator is a line-oriented pattern parser:
// it recognizes a small fixed vocabulary of gate-call lines and nothing
// else. It never calls exec/eval and holds no state beyond the single
// program string being parsed.

// maxDSLLines/maxDSLQubits bound the evaluator's work per spec.md §9's
// "enforce time/memory limits" requirement: a pattern parser over a
// bounded line count is trivially bounded in both.
const (
	maxDSLLines  = 4096
	maxDSLQubits = 64
)

var (
	// qc.h(0), qc.x(1), qc.cx(0, 1), qc.measure(0, 0) — qiskit method-call style.
	qiskitGateRe    = regexp.MustCompile(`^qc\.([a-zA-Z]+)\(([^)]*)\)$`)
	qiskitQubitsRe  = regexp.MustCompile(`QuantumCircuit\((\d+)(?:,\s*(\d+))?\)`)

	// Circuit().h(0).cx(0, 1) — braket fluent-builder style, one call per line.
	braketGateRe = regexp.MustCompile(`^\.([a-zA-Z]+)\(([^)]*)\)$`)

	// qv = QuantumVariable(4); h(qv[0]); cx(qv[0], qv[1]) — qrisp function-call style.
	qrispGateRe  = regexp.MustCompile(`^([a-zA-Z]+)\(([^)]*)\)$`)
	qrispVarRe   = regexp.MustCompile(`QuantumVariable\((\d+)\)`)
)

func boundLines(source string) ([]string, error) {
	rawLines := strings.Split(source, "\n")
	if len(rawLines) > maxDSLLines {
		return nil, fmt.Errorf("program has %d lines, exceeds bounded-evaluator limit %d", len(rawLines), maxDSLLines)
	}
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func parseIntArgs(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.Atoi(p)
		if err != nil {
			// non-integer argument (e.g. a rotation angle) is skipped by
			// the qubit-operand parser; callers that need params re-parse
			// the raw string themselves.
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseQiskitLikeDSL recognizes:
//
//	qc = QuantumCircuit(n, m)
//	qc.h(0)
//	qc.cx(0, 1)
//	qc.measure(0, 0)
func ParseQiskitLikeDSL(source string) (*domain.Circuit, error) {
	lines, err := boundLines(source)
	if err != nil {
		return nil, err
	}
	circuit := &domain.Circuit{}
	found := false
	for _, l := range lines {
		if m := qiskitQubitsRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n > maxDSLQubits {
				return nil, fmt.Errorf("circuit declares %d qubits, exceeds bounded-evaluator limit %d", n, maxDSLQubits)
			}
			circuit.NumQubits = n
			if m[2] != "" {
				c, _ := strconv.Atoi(m[2])
				circuit.Registers = []int{c}
			} else {
				circuit.Registers = []int{n}
			}
			found = true
			continue
		}
		if m := qiskitGateRe.FindStringSubmatch(l); m != nil {
			gate := strings.ToUpper(m[1])
			qubits, _ := parseIntArgs(m[2])
			circuit.Gates = append(circuit.Gates, domain.Gate{Name: gate, Qubits: qubits})
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no recognizable qiskit-like circuit statements found")
	}
	return circuit, nil
}

// ParseBraketLikeDSL recognizes a fluent builder broken one call per line:
//
//	Circuit()
//	.h(0)
//	.cnot(0, 1)
func ParseBraketLikeDSL(source string) (*domain.Circuit, error) {
	lines, err := boundLines(source)
	if err != nil {
		return nil, err
	}
	circuit := &domain.Circuit{}
	maxQubit := -1
	found := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Circuit(") {
			found = true
			continue
		}
		if m := braketGateRe.FindStringSubmatch(l); m != nil {
			gate := strings.ToUpper(m[1])
			qubits, _ := parseIntArgs(m[2])
			for _, q := range qubits {
				if q > maxQubit {
					maxQubit = q
				}
			}
			circuit.Gates = append(circuit.Gates, domain.Gate{Name: gate, Qubits: qubits})
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no recognizable braket-like circuit statements found")
	}
	if maxQubit+1 > maxDSLQubits {
		return nil, fmt.Errorf("circuit touches qubit %d, exceeds bounded-evaluator limit %d", maxQubit, maxDSLQubits)
	}
	circuit.NumQubits = maxQubit + 1
	circuit.Registers = []int{circuit.NumQubits}
	return circuit, nil
}

// ParseQrispLikeDSL recognizes:
//
//	qv = QuantumVariable(4)
//	h(qv[0])
//	cx(qv[0], qv[1])
func ParseQrispLikeDSL(source string) (*domain.Circuit, error) {
	lines, err := boundLines(source)
	if err != nil {
		return nil, err
	}
	circuit := &domain.Circuit{}
	found := false
	for _, l := range lines {
		if m := qrispVarRe.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n > maxDSLQubits {
				return nil, fmt.Errorf("circuit declares %d qubits, exceeds bounded-evaluator limit %d", n, maxDSLQubits)
			}
			circuit.NumQubits = n
			circuit.Registers = []int{n}
			found = true
			continue
		}
		if m := qrispGateRe.FindStringSubmatch(l); m != nil {
			gate := strings.ToUpper(m[1])
			qubits := extractBracketIndices(m[2])
			circuit.Gates = append(circuit.Gates, domain.Gate{Name: gate, Qubits: qubits})
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no recognizable qrisp-like circuit statements found")
	}
	return circuit, nil
}

var bracketIndexRe = regexp.MustCompile(`\[(\d+)\]`)

func extractBracketIndices(raw string) []int {
	matches := bracketIndexRe.FindAllStringSubmatch(raw, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, _ := strconv.Atoi(m[1])
		out = append(out, n)
	}
	return out
}
