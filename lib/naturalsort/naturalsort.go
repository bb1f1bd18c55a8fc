// Package naturalsort orders alphanumeric site identifiers the way a
// human reads them: "2" < "10" < "92" < "S18" < "S32B".
package naturalsort

import (
	"sort"
	"strings"
)

// Key is the structured form of a token: leading letters, the numeric
// run, and trailing letters. A token with no digit run maps to
// (token, 0, "").
type Key struct {
	Prefix string
	Number int
	Suffix string
}

// ParseKey splits a token into its ordering key. Only the first
// letters-digits-letters shape is considered; surrounding whitespace
// is ignored.
func ParseKey(token string) Key {
	s := strings.TrimSpace(token)

	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if i == j {
		// no digit run
		return Key{Prefix: s}
	}

	number := 0
	for _, c := range []byte(s[i:j]) {
		number = number*10 + int(c-'0')
	}

	k := j
	for k < len(s) && isLetter(s[k]) {
		k++
	}

	return Key{Prefix: s[:i], Number: number, Suffix: s[j:k]}
}

// Compare returns -1, 0 or 1 ordering a before b by
// (prefix, number, suffix).
func Compare(a, b string) int {
	ka, kb := ParseKey(a), ParseKey(b)
	if c := strings.Compare(ka.Prefix, kb.Prefix); c != 0 {
		return c
	}
	if ka.Number != kb.Number {
		if ka.Number < kb.Number {
			return -1
		}
		return 1
	}
	return strings.Compare(ka.Suffix, kb.Suffix)
}

func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort orders tokens in place in natural order.
func Sort(tokens []string) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return Less(tokens[i], tokens[j])
	})
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
