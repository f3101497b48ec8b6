// Package reply extracts bookmark numbers from model output.
package reply

import (
	"regexp"
	"strconv"
	"strings"
)

// NoMatch is the literal a model returns when nothing matches.
const NoMatch = "NONE"

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Parse returns the positive integers in a comma-separated reply, in input
// order. "NONE" (case-sensitive) and empty text yield an empty list. Each
// token is read up to its first non-digit, so "50." and "12\nsome prose"
// keep their numbers. Tokens with no leading integer, or a non-positive
// one, are dropped.
func Parse(text string) []int {
	text = strings.TrimSpace(text)
	if text == "" || text == NoMatch {
		return []int{}
	}
	out := []int{}
	for _, tok := range strings.Split(text, ",") {
		digits := leadingInt.FindString(strings.TrimSpace(tok))
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}
