// Package protocol holds the string wire format spoken with the network
// library: JSON request encoders and tolerant decoders for its replies.
//
// Replies are not guaranteed to follow any grammar, so the decoders never
// fail; they return InvalidHandle or an empty vector instead.
package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Handle identifies a network inside the library.
type Handle int64

// InvalidHandle is returned when no handle could be decoded.
const InvalidHandle Handle = -1

// Valid reports whether h may be passed back to the library.
func (h Handle) Valid() bool {
	return h > 0
}

// handleKeys are tried in order; the first that yields an integer wins.
var handleKeys = []string{
	`"handle"`, `"Handle"`,
	`"id"`, `"ID"`,
	`"network_handle"`, `"NetworkHandle"`,
	`"h"`, `"H"`,
}

const resultKey = `"result"`

// ParseHandle decodes a construction reply. It accepts a bare integer, or an
// object carrying one of the handle keys, optionally nested under "result".
func ParseHandle(text string) Handle {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return InvalidHandle
	}
	if v, n := parseLeadingInt(trimmed); n == len(trimmed) {
		return Handle(v)
	}

	// The second pass starts at "result" so that a key repeated inside the
	// wrapper is still found when its first occurrence did not hold an integer.
	haystacks := []string{text}
	if i := strings.Index(text, resultKey); i >= 0 {
		haystacks = append(haystacks, text[i:])
	}
	for _, hay := range haystacks {
		for _, key := range handleKeys {
			i := strings.Index(hay, key)
			if i < 0 {
				continue
			}
			colon := strings.IndexByte(hay[i:], ':')
			if colon < 0 {
				continue
			}
			rest := strings.TrimLeft(hay[i+colon:], ": \t\"")
			if v, n := parseLeadingInt(rest); n > 0 {
				return Handle(v)
			}
		}
	}
	return InvalidHandle
}

// parseLeadingInt parses an optionally signed base-10 integer at the start of
// s, after optional whitespace. It returns the value and the number of bytes
// consumed, or 0 if s does not start with an integer. Values that overflow
// saturate.
func parseLeadingInt(s string) (int64, int) {
	i := skipSpace(s, 0)
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digits {
		return 0, 0
	}
	v, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		if s[start] == '-' {
			return math.MinInt64, i
		}
		return math.MaxInt64, i
	}
	return v, i
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
