// Package result implements the canonical result normalization contract of
// spec.md §4.4, grounded on
// qunicorn_core/core/pilotmanager/base_pilot.py's
// qubits_integer_to_hex / qubit_binary_string_to_hex /
// qubit_hex_string_to_binary / calculate_probabilities static methods. No
// pilot may emit non-canonical keys (spec.md §9); pilots that receive
// integer or binary keys convert them through these functions before
// building a domain.Result, while the IBM pilot stores the provider's
// counts as returned, taking them to be hex-keyed already.
package result

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/perclft/qpilot/internal/qerr"
)

// IntegerCountsToHex converts {3: 1234} -> {"0x3": 1234}.
func IntegerCountsToHex(counts map[int]int) (map[string]int, error) {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		if k < 0 {
			return nil, qerr.New(qerr.Internal, "could not convert decimal results to hex: negative key")
		}
		out[fmt.Sprintf("0x%x", k)] = v
	}
	return out, nil
}

// BinaryCountsToHex converts register-separated binary strings to hex,
// e.g. {"010 1": 1234} -> {"0x2 0x1": 1234}. When reverseQubitOrder is set,
// each register's bits are reversed before conversion (little-endian SDKs).
func BinaryCountsToHex(counts map[string]int, reverseQubitOrder bool) (map[string]int, error) {
	out := make(map[string]int, len(counts))
	for bitstring, v := range counts {
		registers := strings.Fields(bitstring)
		hexRegs := make([]string, 0, len(registers))
		for _, reg := range registers {
			if reverseQubitOrder {
				reg = reverseString(reg)
			}
			n, err := strconv.ParseUint(reg, 2, 64)
			if err != nil {
				return nil, qerr.Wrap(qerr.Internal, "could not convert binary results to hex", err)
			}
			hexRegs = append(hexRegs, fmt.Sprintf("0x%x", n))
		}
		out[strings.Join(hexRegs, " ")] = v
	}
	return out, nil
}

// HexCountsToBinary is the inverse of BinaryCountsToHex, given the size of
// each classical register (MSB-register first), used for tests and for
// pilots that need binary keys back out of a canonical result.
func HexCountsToBinary(counts map[string]int, registers []int, reverseQubitOrder bool) (map[string]int, error) {
	out := make(map[string]int, len(counts))
	for hexString, v := range counts {
		hexRegs := strings.Fields(hexString)
		if len(hexRegs) != len(registers) {
			return nil, qerr.New(qerr.Internal, fmt.Sprintf("hex key %q has %d register(s), expected %d", hexString, len(hexRegs), len(registers)))
		}
		regs := make([]string, len(hexRegs))
		for i, hexReg := range hexRegs {
			hexDigits := strings.TrimPrefix(hexReg, "0x")
			n, err := strconv.ParseUint(hexDigits, 16, 64)
			if err != nil {
				return nil, qerr.Wrap(qerr.Internal, "could not convert hex results to binary", err)
			}
			width := registers[i]
			regBits := fmt.Sprintf("%0*b", width, n)
			if len(regBits) > width {
				regBits = regBits[len(regBits)-width:]
			}
			if reverseQubitOrder {
				regBits = reverseString(regBits)
			}
			regs[i] = regBits
		}
		out[strings.Join(regs, " ")] = v
	}
	return out, nil
}

// CountsToProbabilities divides every count by the sum of all counts
// (spec.md §4.4). An all-zero/empty counts map returns {"": 0} rather than
// dividing by zero.
func CountsToProbabilities(counts map[string]int) map[string]float64 {
	total := 0
	for _, v := range counts {
		total += v
	}
	if total == 0 {
		return map[string]float64{"": 0}
	}
	probs := make(map[string]float64, len(counts))
	for k, v := range counts {
		probs[k] = float64(v) / float64(total)
	}
	return probs
}

// SumProbabilities is a test/invariant helper (spec.md §8 invariant 5).
func SumProbabilities(probs map[string]float64) float64 {
	keys := make([]string, 0, len(probs))
	for k := range probs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // stable summation order for reproducible float sums
	var total float64
	for _, k := range keys {
		total += probs[k]
	}
	return total
}

func reverseString(s string) string {
	r := []byte(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
