package normalize

import (
	"fmt"
	"strings"
)

// DecodeError is returned when artifact bytes are not valid UTF-8 text.
type DecodeError struct {
	Name string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: content is not valid UTF-8 text", e.Name)
}

// ParseError is returned when a notebook is not well-formed JSON or lacks the
// expected cell list.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid notebook: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError is returned for artifacts whose extension is not
// accepted.
type UnsupportedFormatError struct {
	Name     string
	Accepted []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf(
		"%s: unsupported format, accepted formats are %s",
		e.Name,
		strings.Join(e.Accepted, ", "),
	)
}
