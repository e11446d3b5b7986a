package bsp

import (
	"errors"
	"fmt"
)

// Error kinds. Decoders wrap these so callers can use errors.Is.
var (
	// ErrStructural is returned for truncated streams, bad magic, or lump
	// offsets/lengths that exceed the container bounds.
	ErrStructural = errors.New("bsp: structural error")

	// ErrRecordMalformed marks an entity record that does not parse into the
	// expected "key" "value" shape. It is reported as a warning, never returned
	// from Decode.
	ErrRecordMalformed = errors.New("bsp: malformed record")

	// ErrDecode is returned when a derived value fails a sanity bound, such as a
	// static prop stride that yields an out-of-range model index.
	ErrDecode = errors.New("bsp: decode error")

	// ErrCancelled is returned when the context is cancelled mid-decode.
	ErrCancelled = errors.New("bsp: cancelled")
)

// Error carries the position at which decoding failed.
type Error struct {
	Kind   error
	Lump   int
	Offset int64
	Msg    string
}

func (e *Error) Error() string {
	if e.Lump >= 0 {
		return fmt.Sprintf("%v: lump %d at offset %d: %s", e.Kind, e.Lump, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%v: offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func structuralf(lump int, offset int64, format string, args ...any) error {
	return &Error{Kind: ErrStructural, Lump: lump, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func decodef(lump int, offset int64, format string, args ...any) error {
	return &Error{Kind: ErrDecode, Lump: lump, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
