package field

// split.go splits tag strings at a comma separator but allowing for brackets and quotes

import (
	"fmt"
	"strings"
)

// closing maps each opening bracket to the bracket that closes it
var closing = map[rune]rune{'(': ')', '[': ']', '{': '}'}

// SplitArgs splits a string on commas and returns the resulting slice of (trimmed) strings.
// It ignores commas within strings, round brackets, square brackets or braces, which
// allows for "nested" structures. For example "a,b(c,d),e"  => []string{ "a", "b(c,d)", "e" }
// An error is returned if there is a problem with the input string such as unmatched brackets.
func SplitArgs(s string) ([]string, error) {
	var retval []string
	var open []rune // stack of currently open brackets
	var inString bool
	start := 0

	for i, c := range s {
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '[', '{':
			open = append(open, c)
		case ')', ']', '}':
			if len(open) == 0 || closing[open[len(open)-1]] != c {
				return nil, fmt.Errorf("unmatched %q in %q", c, s)
			}
			open = open[:len(open)-1]
		case ',':
			if len(open) == 0 { // only split at "top-level" commas
				retval = append(retval, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if inString {
		return nil, fmt.Errorf("unmatched quote (unterminated string) in %q", s)
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("unmatched %q in %q", open[len(open)-1], s)
	}
	return append(retval, strings.TrimSpace(s[start:])), nil
}
