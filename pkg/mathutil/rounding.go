// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"github.com/shopspring/decimal"
)

// RoundTo rounds a value half away from zero to the given number of decimal
// places using exact decimal arithmetic. NaN and infinities pass through.
func RoundTo(val float64, places int32) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return decimal.NewFromFloat(val).Round(places).InexactFloat64()
}

// Round rounds a value to two decimals, i.e. to represent real currency or
// tonnes of mass.
func Round(val float64) float64 {
	return RoundTo(val, constants.MoneyDecimals)
}

// RoundFrequency rounds a frequency or probability to four decimals.
func RoundFrequency(val float64) float64 {
	return RoundTo(val, constants.FrequencyDecimals)
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// AtLeast reports whether val is greater than or equal to bound, allowing for
// floating-point drift of constants.FeasibilityTolerance.
func AtLeast(val, bound float64) bool {
	return val >= bound-constants.FeasibilityTolerance
}

// ScaledTolerance scales tol by the magnitude of bound, never going below tol
// itself.
func ScaledTolerance(bound, tol float64) float64 {
	return tol * math.Max(1, math.Abs(bound))
}

// AtLeastScaled reports whether val reaches bound within
// ScaledTolerance(bound, constants.FeasibilityTolerance).
func AtLeastScaled(val, bound float64) bool {
	return val >= bound-ScaledTolerance(bound, constants.FeasibilityTolerance)
}

// SafeMean returns sum/count, or NaN when count is zero.
func SafeMean(sum float64, count int) float64 {
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
