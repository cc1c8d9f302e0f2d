/*
	This file defines the error taxonomy shared by every layer of the container.
*/

package dvid

import (
	"errors"
	"fmt"
)

// ErrorCategory groups error kinds into the broad failure classes callers branch on.
type ErrorCategory uint8

const (
	UnknownCategory ErrorCategory = iota
	FormatError
	IOError
	CompressionError
	RangeError
	WriteError
	LookupError
)

func (c ErrorCategory) String() string {
	switch c {
	case FormatError:
		return "format error"
	case IOError:
		return "I/O failure"
	case CompressionError:
		return "compression error"
	case RangeError:
		return "range error"
	case WriteError:
		return "write error"
	case LookupError:
		return "lookup error"
	default:
		return "unknown error"
	}
}

// ErrorKind is the closed set of runtime failures.
type ErrorKind uint8

const (
	UnknownKind ErrorKind = iota

	BadMagic
	UnsupportedVersion
	CorruptDirectory

	IOFailure

	CorruptBlock
	ChecksumMismatch

	OutOfBounds
	InvalidBlockEdge
	SingularMatrix

	DuplicateBlock
	ReadOnly
	Finalized

	NotFound
)

var kindNames = map[ErrorKind]string{
	BadMagic:           "bad magic",
	UnsupportedVersion: "unsupported version",
	CorruptDirectory:   "corrupt directory",
	IOFailure:          "I/O failure",
	CorruptBlock:       "corrupt block",
	ChecksumMismatch:   "checksum mismatch",
	OutOfBounds:        "out of bounds",
	InvalidBlockEdge:   "invalid block edge",
	SingularMatrix:     "singular matrix",
	DuplicateBlock:     "duplicate block",
	ReadOnly:           "read-only",
	Finalized:          "already finalized",
	NotFound:           "not found",
}

func (k ErrorKind) String() string {
	if s, found := kindNames[k]; found {
		return s
	}
	return fmt.Sprintf("error kind %d", uint8(k))
}

// Category returns the failure class for the kind.
func (k ErrorKind) Category() ErrorCategory {
	switch k {
	case BadMagic, UnsupportedVersion, CorruptDirectory:
		return FormatError
	case IOFailure:
		return IOError
	case CorruptBlock, ChecksumMismatch:
		return CompressionError
	case OutOfBounds, InvalidBlockEdge, SingularMatrix:
		return RangeError
	case DuplicateBlock, ReadOnly, Finalized:
		return WriteError
	case NotFound:
		return LookupError
	default:
		return UnknownCategory
	}
}

// Error is the error type returned by all fallible operations.  Op names the
// operation that failed, Msg gives detail, and Err holds any underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for use with errors.Is.  Matching is done on Kind only.
var (
	ErrBadMagic           = &Error{Kind: BadMagic}
	ErrUnsupportedVersion = &Error{Kind: UnsupportedVersion}
	ErrCorruptDirectory   = &Error{Kind: CorruptDirectory}
	ErrIOFailure          = &Error{Kind: IOFailure}
	ErrCorruptBlock       = &Error{Kind: CorruptBlock}
	ErrChecksumMismatch   = &Error{Kind: ChecksumMismatch}
	ErrOutOfBounds        = &Error{Kind: OutOfBounds}
	ErrInvalidBlockEdge   = &Error{Kind: InvalidBlockEdge}
	ErrSingularMatrix     = &Error{Kind: SingularMatrix}
	ErrDuplicateBlock     = &Error{Kind: DuplicateBlock}
	ErrReadOnly           = &Error{Kind: ReadOnly}
	ErrFinalized          = &Error{Kind: Finalized}
	ErrNotFound           = &Error{Kind: NotFound}
)

// NewError returns an *Error of the given kind with a formatted message.
func NewError(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapError returns an *Error of the given kind wrapping a cause.  A nil cause
// returns nil.
func WrapError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IOErr wraps an underlying read/write/seek failure.  Errors that already carry
// a kind are passed through untouched.
func IOErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: IOFailure, Op: op, Err: err}
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain or UnknownKind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownKind
}
