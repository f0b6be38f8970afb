package dvid

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned when a mutator is requested from a read-only store.
	ErrUnsupported = errors.New("operation not supported by read-only pixel store")

	// ErrNotWritable is returned by setters on a writable store that was opened
	// without permission to modify.
	ErrNotWritable = errors.New("pixel store not opened with permission to modify")

	// ErrInvalidID is returned for pixel set identifiers that cannot be mapped to a path.
	ErrInvalidID = errors.New("invalid pixel set identifier")

	// ErrBufferOverflow matches a BufferSizeError where more bytes were supplied than fit.
	ErrBufferOverflow = errors.New("buffer overflow")

	// ErrBufferUnderflow matches a BufferSizeError where fewer bytes were supplied than needed.
	ErrBufferUnderflow = errors.New("buffer underflow")

	// ErrClosed is returned on I/O against a closed store.
	ErrClosed = errors.New("pixel store is closed")
)

// OutOfBoundsError reports an axis value outside the grid, or a malformed
// hypercube request.  Axis and Value are set for axis violations; Reason is set
// for argument-list problems that aren't tied to a single value.
type OutOfBoundsError struct {
	Axis   Axis
	Value  int
	Extent int
	Reason string
}

func (e *OutOfBoundsError) Error() string {
	if e.Reason != "" {
		return "dimensions out of bounds: " + e.Reason
	}
	if e.Value < 0 {
		return fmt.Sprintf("dimensions out of bounds: %s '%d' < 0", e.Axis, e.Value)
	}
	return fmt.Sprintf("dimensions out of bounds: %s '%d' >= size%s '%d'",
		e.Axis, e.Value, upperAxis(e.Axis), e.Extent)
}

func upperAxis(a Axis) string {
	s := a.String()
	if len(s) == 1 {
		return string(s[0] - 'a' + 'A')
	}
	return s
}

// BufferSizeError reports a supplied buffer whose length does not match the
// region it is read into or written from.
type BufferSizeError struct {
	Expected int64
	Actual   int64
}

// Overflow returns true if the buffer held more data than the region.
func (e *BufferSizeError) Overflow() bool {
	return e.Actual > e.Expected
}

func (e *BufferSizeError) Error() string {
	if e.Overflow() {
		return fmt.Sprintf("buffer overflow: %d bytes supplied for region of %d bytes", e.Actual, e.Expected)
	}
	return fmt.Sprintf("buffer underflow: %d bytes supplied for region of %d bytes", e.Actual, e.Expected)
}

// Is lets errors.Is distinguish overflow from underflow.
func (e *BufferSizeError) Is(target error) bool {
	switch target {
	case ErrBufferOverflow:
		return e.Overflow()
	case ErrBufferUnderflow:
		return !e.Overflow()
	}
	return false
}

// CheckBufferSize returns a *BufferSizeError if actual != expected.
func CheckBufferSize(expected, actual int64) error {
	if expected != actual {
		return &BufferSizeError{Expected: expected, Actual: actual}
	}
	return nil
}

// FormatError is returned when a file is not of the format a store expects.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized format for %s: %s", e.Path, e.Reason)
}
