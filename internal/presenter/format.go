package presenter

import "fmt"

// FormatClock renders whole seconds as zero-padded mm:ss. Minutes are not
// wrapped into hours, so long tasks read as e.g. 125:07.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
