package util

import "fmt"

var sizeUnits = []struct {
	shift uint
	name  string
}{
	{30, "GB"},
	{20, "MB"},
	{10, "KB"},
}

// Human formats a byte count for summaries and progress bars.
func Human(n int64) string {
	for _, u := range sizeUnits {
		if n >= 1<<u.shift {
			return fmt.Sprintf("%.2f %s", float64(n)/float64(int64(1)<<u.shift), u.name)
		}
	}

	return fmt.Sprintf("%d B", n)
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
