package utils

import "math"

// CentsFromAmount converts a major-unit amount (e.g. 12.34) to integer cents.
// Request floats cross this boundary exactly once; everything past it is
// integer arithmetic.
func CentsFromAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// AmountFromCents converts integer cents back to a major-unit float for
// presentation DTOs.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}
