// Package format renders numbers for human-readable reports.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is shown for values that are undefined, such as the shadow
// price of the first frontier point or the mean safety of an empty fleet.
const NotAvailable = "n/a"

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	if math.IsNaN(amount) {
		return NotAvailable
	}
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return Quantity(amount)
}

// Quantity formats a mass or capacity with two decimals and separators.
func Quantity(value float64) string {
	if math.IsNaN(value) {
		return NotAvailable
	}
	if value == 0 {
		// avoid "-0.00"
		value = 0
	}
	return printer().Sprintf("%.2f", value)
}

// Tonnes formats a mass in tonnes, e.g. "1,234.56 t".
func Tonnes(value float64) string {
	if math.IsNaN(value) {
		return NotAvailable
	}
	return Quantity(value) + " t"
}

// Count formats an integer with separators.
func Count(n int) string {
	return printer().Sprintf("%d", n)
}

// Frequency formats a probability with four decimals.
func Frequency(value float64) string {
	if math.IsNaN(value) {
		return NotAvailable
	}
	return printer().Sprintf("%.4f", value)
}

// Percent formats a share as a percentage with two decimals.
func Percent(value float64) string {
	if math.IsNaN(value) {
		return NotAvailable
	}
	return printer().Sprintf("%.2f%%", value*100)
}

// Score formats a safety score or threshold with two decimals.
func Score(value float64) string {
	if math.IsNaN(value) {
		return NotAvailable
	}
	return printer().Sprintf("%.2f", value)
}

// OptionalCurrency formats v as Currency, or NotAvailable when v is nil.
func OptionalCurrency(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return Currency(*v)
}
