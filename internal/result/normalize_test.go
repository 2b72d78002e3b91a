package result_test

import (
	"math"
	"testing"

	"github.com/perclft/qpilot/internal/result"
)

func TestIntegerCountsToHex(t *testing.T) {
	got, err := result.IntegerCountsToHex(map[int]int{3: 1234, 0: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["0x3"] != 1234 || got["0x0"] != 5 {
		t.Errorf("unexpected output: %v", got)
	}
}

func TestIntegerCountsToHexRejectsNegative(t *testing.T) {
	if _, err := result.IntegerCountsToHex(map[int]int{-1: 1}); err == nil {
		t.Fatal("expected error for negative key")
	}
}

func TestBinaryCountsToHexRoundTrip(t *testing.T) {
	hex, err := result.BinaryCountsToHex(map[string]int{"010 1": 100}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hex["0x2 0x1"] != 100 {
		t.Errorf("unexpected hex output: %v", hex)
	}

	binary, err := result.HexCountsToBinary(hex, []int{3, 1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binary["010 1"] != 100 {
		t.Errorf("round trip mismatch: %v", binary)
	}
}

func TestBinaryCountsToHexReverseQubitOrder(t *testing.T) {
	hex, err := result.BinaryCountsToHex(map[string]int{"100": 10}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hex["0x1"] != 10 {
		t.Errorf("expected reversed bits to yield 0x1, got %v", hex)
	}
}

func TestCountsToProbabilities(t *testing.T) {
	probs := result.CountsToProbabilities(map[string]int{"0x0": 25, "0x1": 75})
	if math.Abs(probs["0x0"]-0.25) > 1e-9 || math.Abs(probs["0x1"]-0.75) > 1e-9 {
		t.Errorf("unexpected probabilities: %v", probs)
	}
}

func TestCountsToProbabilitiesEmpty(t *testing.T) {
	probs := result.CountsToProbabilities(map[string]int{})
	if probs[""] != 0 {
		t.Errorf("expected zero-value sentinel for empty counts, got %v", probs)
	}
}

func TestSumProbabilitiesIsOne(t *testing.T) {
	probs := result.CountsToProbabilities(map[string]int{"0x0": 1, "0x1": 3, "0x2": 6})
	sum := result.SumProbabilities(probs)
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected probabilities to sum to 1, got %f", sum)
	}
}
