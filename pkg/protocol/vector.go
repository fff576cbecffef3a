package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// DefaultMaxValues bounds how many values are decoded from an output reply.
const DefaultMaxValues = 1024

// ParseVector extracts up to max numbers found between the first '[' and the
// last ']' of text. Anything that is not a decimal literal (separators, nested
// brackets, words, truncated tokens) is skipped one byte at a time.
func ParseVector(text string, max int) []float64 {
	open := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if open < 0 || end < 0 || end <= open || max <= 0 {
		return nil
	}

	body := text[open+1 : end]
	var values []float64
	for i := 0; i < len(body) && len(values) < max; {
		v, n := parseLeadingFloat(body[i:])
		if n == 0 {
			i++
			continue
		}
		values = append(values, v)
		i += n
	}
	return values
}

// parseLeadingFloat parses a decimal floating-point literal at the start of s,
// after optional whitespace: [sign] digits [. digits] [e [sign] digits], with at
// least one mantissa digit. It returns the value and bytes consumed, or 0 if
// no literal starts there. Out-of-range literals keep the saturated value
// strconv reports.
func parseLeadingFloat(s string) (float64, int) {
	i := skipSpace(s, 0)
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	mantissa := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		mantissa++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expDigits {
			i = j
		}
	}

	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, 0
	}
	return v, i
}
