package simulation

import "fmt"

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress returns how far through the question list the session is, in
// percent, counting the current question as reached.
func Progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(index+1) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
