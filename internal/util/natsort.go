package util

import (
	"sort"
	"strings"
)

// NaturalSort returns names ordered so that embedded numbers compare by value:
// "2.jpg" sorts before "10.jpg". The input slice is left untouched.
func NaturalSort(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)

	keys := make(map[string][]string, len(out))
	for _, n := range out {
		if _, ok := keys[n]; !ok {
			keys[n] = naturalKey(n)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := compareKeys(keys[out[i]], keys[out[j]]); c != 0 {
			return c < 0
		}
		return out[i] < out[j]
	})

	return out
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	if c := compareKeys(naturalKey(a), naturalKey(b)); c != 0 {
		return c < 0
	}
	return a < b
}

// naturalKey splits s into alternating text and digit runs. The key always
// starts with a (possibly empty) text run, so even indices hold text and odd
// indices hold digits for every key.
func naturalKey(s string) []string {
	key := make([]string, 0, 4)

	var cur strings.Builder
	inDigits := false

	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		if isDigit != inDigits {
			key = append(key, cur.String())
			cur.Reset()
			inDigits = isDigit
		}
		cur.WriteRune(r)
	}
	key = append(key, cur.String())

	for i := 0; i < len(key); i += 2 {
		key[i] = strings.ToLower(key[i])
	}

	return key
}

func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		var c int
		if i%2 == 1 {
			c = compareDigits(a[i], b[i])
		} else {
			c = strings.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// compareDigits compares two runs of ASCII digits by numeric value without
// converting them, so arbitrarily long runs never overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	return strings.Compare(a, b)
}
