package icf

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrFormat        = errors.New("malformed container")
	ErrIO            = errors.New("container I/O failed")
	ErrIndex         = errors.New("record index out of range")
	ErrClosed        = errors.New("container is closed")
	ErrReadOnly      = errors.New("container is read-only")
	ErrInvalidOption = errors.New("invalid container option")
)

// ContainerError provides structured information about a failed operation.
type ContainerError struct {
	Op     string // Operation that failed (e.g., "open", "write", "flush")
	Path   string // Container file path
	Index  uint64 // Logical record index (if HasIndex)
	Offset int64  // File offset involved, -1 when not applicable
	Kind   error  // One of the Err* sentinels
	Cause  error  // Underlying error, may be nil

	HasIndex bool
}

// Error implements the error interface.
func (e *ContainerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.HasIndex {
		fmt.Fprintf(&b, " record %d", e.Index)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain support.
func (e *ContainerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is this error's kind or matches its cause.
func (e *ContainerError) Is(target error) bool {
	if target == nil {
		return false
	}
	if e.Kind == target {
		return true
	}
	return errors.Is(e.Cause, target)
}

// errorBuilder provides a fluent interface for building ContainerErrors.
type errorBuilder struct {
	e ContainerError
}

func newError(op string) *errorBuilder {
	return &errorBuilder{e: ContainerError{Op: op, Offset: -1, Kind: ErrIO}}
}

func (b *errorBuilder) path(p string) *errorBuilder {
	b.e.Path = p
	return b
}

func (b *errorBuilder) index(i uint64) *errorBuilder {
	b.e.Index = i
	b.e.HasIndex = true
	return b
}

func (b *errorBuilder) offset(off int64) *errorBuilder {
	b.e.Offset = off
	return b
}

func (b *errorBuilder) kind(k error) *errorBuilder {
	b.e.Kind = k
	return b
}

func (b *errorBuilder) cause(err error) *errorBuilder {
	b.e.Cause = err
	return b
}

// causef sets a formatted cause.
func (b *errorBuilder) causef(format string, args ...any) *errorBuilder {
	b.e.Cause = fmt.Errorf(format, args...)
	return b
}

func (b *errorBuilder) err() error {
	return &b.e
}

// formatError is shorthand for a malformed-file error found during recovery.
func formatError(op string, off int64, format string, args ...any) error {
	return newError(op).offset(off).kind(ErrFormat).causef(format, args...).err()
}

// withPath fills in the container path on errors raised below the facade.
func withPath(err error, path string) error {
	var ce *ContainerError
	if errors.As(err, &ce) && ce.Path == "" {
		ce.Path = path
	}
	return err
}
