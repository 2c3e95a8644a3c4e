package tle

import "fmt"

// MalformedElementSetError reports a structurally invalid TLE line pair:
// wrong length, wrong line-number prefix, or an unparseable field.
type MalformedElementSetError struct {
	Line   int // 1 or 2; 0 when the problem spans both lines
	Field  string
	Detail string
}

func (e *MalformedElementSetError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed element set: line %d field %s: %s", e.Line, e.Field, e.Detail)
	}
	return fmt.Sprintf("malformed element set: %s", e.Detail)
}

// ChecksumMismatchError reports a mod-10 checksum failure on an otherwise
// structurally valid line. It is advisory: ParseElementSet still returns a
// usable ElementSet alongside it, and callers may log and continue.
type ChecksumMismatchError struct {
	Line int
	Want int
	Got  int
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch on line %d: computed %d, line carries %d", e.Line, e.Want, e.Got)
}
