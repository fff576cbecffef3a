package protocol

import "strings"

var errorKeys = []string{`"error"`, `"Error"`, `"err"`}

// IsErrorReply reports whether a reply carries an error object or is
// explicitly an error string.
func IsErrorReply(text string) bool {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "error:") {
		return true
	}
	for _, key := range errorKeys {
		if strings.Contains(text, key) {
			return true
		}
	}
	return false
}
