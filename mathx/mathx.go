// Package mathx holds small numeric helpers not worth a dependency.
package mathx

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.0001 for
// four decimal places, and so on).
func Round(x, unit float64) float64 {
	return float64(int64(x/unit+0.5)) * unit
}
