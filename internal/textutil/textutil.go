package textutil

import (
	"bytes"
	"strings"
)

// CString returns the text of a NUL-padded fixed-size field: everything up
// to the first NUL, with surrounding whitespace removed.
func CString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
