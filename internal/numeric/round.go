// Package numeric holds small float helpers shared by the simulation and
// analysis packages.
package numeric

import "math"

// Round rounds x to the given number of decimal places, halves away from zero.
// The scaled value x*p is itself rounded to a double, so a result within one
// ulp of a half may land on the other side of it than a correctly-rounded
// decimal round would. Exact binary ties such as 0.125 go away from zero, not
// to even.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Clamp01 restricts x to the closed interval [0,1].
func Clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// Ptr returns a pointer to a copy of v.
func Ptr(v float64) *float64 { return &v }
