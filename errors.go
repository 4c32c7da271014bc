package flatgeobuf

import (
	"errors"
	"fmt"
)

const packageName = "flatgeobuf: "

func textErr(text string) error {
	return errors.New(packageName + text)
}

func fmtErr(format string, a ...interface{}) error {
	return fmt.Errorf(packageName+format, a...)
}

func wrapErr(text string, err error, a ...interface{}) error {
	return fmt.Errorf(packageName+text+": %w", append(a, err)...)
}

// Kind classifies the failure mode of an Error, so callers can react
// to categories of problems (a corrupt file vs. a transport hiccup)
// without string-matching messages.
type Kind int

const (
	// NotAFlatGeobuf means the source's first bytes did not match the
	// FlatGeobuf magic number.
	NotAFlatGeobuf Kind = iota
	// InvalidHeaderSize means the header-length prefix was smaller
	// than the minimum plausible header (8 bytes) or larger than this
	// package is willing to allocate for.
	InvalidHeaderSize
	// CorruptIndex means the packed Hilbert R-tree index could not be
	// parsed, or a node's byte range was inconsistent with the
	// header's declared feature count.
	CorruptIndex
	// CorruptFeature means a feature record's length prefix or
	// FlatBuffers payload could not be decoded.
	CorruptFeature
	// TransportError means the underlying Source returned an error
	// fetching a byte range (a network failure, an HTTP status other
	// than 200/206, a short file read), or that the Reader was already
	// closed.
	TransportError
	// UnsupportedColumnType means a property column declared a
	// ColumnType this package does not know how to decode.
	UnsupportedColumnType
)

func (k Kind) String() string {
	switch k {
	case NotAFlatGeobuf:
		return "NotAFlatGeobuf"
	case InvalidHeaderSize:
		return "InvalidHeaderSize"
	case CorruptIndex:
		return "CorruptIndex"
	case CorruptFeature:
		return "CorruptFeature"
	case TransportError:
		return "TransportError"
	case UnsupportedColumnType:
		return "UnsupportedColumnType"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by every exported operation in
// this package that can fail for a file-format or transport reason.
// Use errors.As to recover the Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flatgeobuf: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("flatgeobuf: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
