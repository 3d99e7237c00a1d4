package source

import (
	"errors"
	"fmt"
)

// Kind classifies why an input file could not be acquired.
type Kind int

const (
	KindUnknown    Kind = iota
	NotFound            // path does not exist
	NotRegularFile      // directory, device, socket, ...
	OpenFailed          // open (or fstat) failed
	EmptyFile           // zero-length file
	ReadFailed          // buffered fallback read was short or failed
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case NotRegularFile:
		return "NotRegularFile"
	case OpenFailed:
		return "OpenFailed"
	case EmptyFile:
		return "EmptyFile"
	case ReadFailed:
		return "ReadFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error reports a failed acquisition. Err carries the OS error when there is one.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrNotFound       = &Error{Kind: NotFound}
	ErrNotRegularFile = &Error{Kind: NotRegularFile}
	ErrOpenFailed     = &Error{Kind: OpenFailed}
	ErrEmptyFile      = &Error{Kind: EmptyFile}
	ErrReadFailed     = &Error{Kind: ReadFailed}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case NotFound:
		msg = fmt.Sprintf("input file '%s' does not exist", e.Path)
	case NotRegularFile:
		msg = fmt.Sprintf("input path '%s' is not a regular file", e.Path)
	case OpenFailed:
		msg = fmt.Sprintf("failed to open input file '%s'", e.Path)
	case EmptyFile:
		msg = fmt.Sprintf("input file '%s' is empty", e.Path)
	case ReadFailed:
		msg = fmt.Sprintf("failed to read input file '%s'", e.Path)
	default:
		msg = fmt.Sprintf("cannot acquire '%s'", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
