package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number round up", -1.235, -1.24},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
		{"Exactly one cent", 0.01, 0.01},
		{"Nearly two cents", 0.019, 0.02},
		{"Fleet sized cost", 4576667.125, 4576667.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if result != tt.expected {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundFrequency(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Exact", 0.5, 0.5},
		{"Four decimals", 0.12344, 0.1234},
		{"Midpoint", 0.12345, 0.1235},
		{"One", 1, 1},
		{"Third", 1.0 / 3.0, 0.3333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundFrequency(tt.input)
			if result != tt.expected {
				t.Errorf("RoundFrequency(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundPassesThroughNonFinite(t *testing.T) {
	if !math.IsNaN(Round(math.NaN())) {
		t.Errorf("expected NaN to pass through")
	}
	if !math.IsInf(Round(math.Inf(1)), 1) {
		t.Errorf("expected +Inf to pass through")
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Very small positive", 0.001, true},
		{"Very small negative", -0.001, true},
		{"Just above tolerance", 0.02, false},
		{"Just below negative tolerance", -0.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(tt.input); result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(0.1+0.2, 0.3) {
		t.Errorf("expected drift below bound to be tolerated")
	}
	if AtLeast(2.9, 3.0) {
		t.Errorf("expected 2.9 to fall short of 3.0")
	}
	if !AtLeast(3.0, 3.0) {
		t.Errorf("expected equality to satisfy the bound")
	}
}

func TestAtLeastScaled(t *testing.T) {
	const bound = 4576667.0
	if !AtLeastScaled(bound-0.002, bound) {
		t.Errorf("expected drift proportional to the bound to be tolerated")
	}
	if AtLeastScaled(bound-0.01, bound) {
		t.Errorf("expected a 0.01 shortfall to fail")
	}
	if AtLeastScaled(-2e-9, 0) {
		t.Errorf("expected the tolerance to stay absolute for small bounds")
	}
	if got := ScaledTolerance(-bound, 1e-9); math.Abs(got-bound*1e-9) > 1e-15 {
		t.Errorf("ScaledTolerance(-bound) = %v", got)
	}
}

func TestSafeMean(t *testing.T) {
	if got := SafeMean(12, 3); got != 4 {
		t.Errorf("SafeMean(12, 3) = %v, expected 4", got)
	}
	if got := SafeMean(0, 0); !math.IsNaN(got) {
		t.Errorf("SafeMean(0, 0) = %v, expected NaN", got)
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(100.004, 100.0, 0.01) {
		t.Errorf("expected values within tolerance")
	}
	if WithinTolerance(100.02, 100.0, 0.01) {
		t.Errorf("expected values outside tolerance")
	}
}
