package estimator

import (
	"fmt"
	"math"
)

// FormatClock renders whole seconds as M:SS. Negative input renders 0:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatSeconds is FormatClock for raw wire values: fractions are truncated
// and NaN or infinite input renders 0:00.
func FormatSeconds(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return FormatClock(0)
	}
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	return FormatClock(int(math.Trunc(v)))
}
