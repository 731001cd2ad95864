package math

import (
	"math"
	"strconv"
)

// Format formats a float based on the given precision
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Clamp limits the value to the [min,max] range.
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Bucket rounds the value to the nearest multiple of size.
func Bucket(v, size float64) float64 {
	if size <= 0 {
		return v
	}
	return math.Round(v/size) * size
}

// Div divides and returns 0 instead of infinities.
func Div(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Round rounds the value to the given decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
