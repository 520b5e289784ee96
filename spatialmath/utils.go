package spatialmath

import "math"

// Float64AlmostEqual compares two floats and returns true when their
// difference is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}
