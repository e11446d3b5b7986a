package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCString(t *testing.T) {
	assert.Equal(t, "models/a.mdl", CString([]byte("models/a.mdl\x00\x00\x00")))
	assert.Equal(t, "models/b.mdl", CString([]byte("models/b.mdl\x00junk\x00")))
	assert.Equal(t, "", CString(make([]byte, 8)))
	assert.Equal(t, "x", CString([]byte(" x ")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
