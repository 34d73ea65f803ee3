package dialog

import (
	"strconv"
	"strings"
)

var cardinals = []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

var ordinals = []string{"first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth", "tenth"}

// PickIndex reads a spoken choice and returns it zero-based. A digit run wins,
// then the first cardinal word from one to ten (substring match, checked in
// numeric order), then ordinals. Callers must still check InRange.
func PickIndex(text string) (int, bool) {
	if n, ok := firstNumber(text); ok {
		return n - 1, true
	}
	lower := strings.ToLower(text)
	for _, table := range [][]string{cardinals, ordinals} {
		for i, w := range table {
			if strings.Contains(lower, w) {
				return i, true
			}
		}
	}
	return 0, false
}

// InRange reports whether idx selects one of size candidates.
func InRange(idx, size int) bool {
	return idx >= 0 && idx < size
}

func firstNumber(text string) (int, bool) {
	start := strings.IndexAny(text, "0123456789")
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(text[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
