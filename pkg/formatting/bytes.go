// Package formatting renders values for log output.
package formatting

import (
	"math"
	"strconv"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes converts a byte count to a human-readable string using base-1024
// units. Negative counts are reported as unknown.
func FormatBytes(n int64, precision int) string {
	switch {
	case n < 0:
		return "unknown"
	case n < 1024:
		return strconv.FormatInt(n, 10) + " B"
	}

	precision = max(precision, 0)

	f := float64(n)
	i := min(int(math.Floor(math.Log(f)/math.Log(1024))), len(units)-1)

	return strconv.FormatFloat(f/math.Pow(1024, float64(i)), 'f', precision, 64) + " " + units[i]
}
