package chapters

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid chapter range")

// Range is an inclusive span of chapter numbers, Min >= 1 and Max >= Min.
type Range struct {
	Min int
	Max int
}

func NewRange(min, max int) (Range, error) {
	if min < 1 {
		return Range{}, fmt.Errorf("%w: first chapter %d must be at least 1", ErrInvalidRange, min)
	}
	if max < min {
		return Range{}, fmt.Errorf("%w: last chapter %d is before first chapter %d", ErrInvalidRange, max, min)
	}

	return Range{Min: min, Max: max}, nil
}

// ParseRange accepts "5" or "5-12".
func ParseRange(rng string) (Range, error) {
	parts := strings.Split(rng, "-")
	switch len(parts) {
	case 1:
		n, err := ParseBound(parts[0])
		if err != nil {
			return Range{}, err
		}
		return NewRange(n, n)
	case 2:
		start, err := ParseBound(parts[0])
		if err != nil {
			return Range{}, err
		}
		end, err := ParseBound(parts[1])
		if err != nil {
			return Range{}, err
		}
		return NewRange(start, end)
	}

	return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
}

// ParseBound parses one chapter number as supplied on a query string or flag.
func ParseBound(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a chapter number", ErrInvalidRange, s)
	}
	return n, nil
}

// Chapters lists every chapter in the range in ascending order.
func (r Range) Chapters() []int {
	out := make([]int, 0, r.Len())
	for n := r.Min; n <= r.Max; n++ {
		out = append(out, n)
	}
	return out
}

func (r Range) Len() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
