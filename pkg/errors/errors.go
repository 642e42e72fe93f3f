// Package errors provides structured error types for syncarch.
//
// The architecture-synthesis passes distinguish three failure classes:
//   - STRUCTURAL_INVARIANT: the netlist violates an invariant the passes rely
//     on (port biconsistency, a cycle, a duplicate node). This is a compiler
//     bug and is never recovered.
//   - UNSUPPORTED_PATTERN: a code shape that cannot be lowered yet.
//   - INVALID_INPUT: malformed fixtures or options.
//
// Rejected optimizations (a merge or hoist that would risk a deadlock) are
// not errors at all; passes skip them and log at debug level.
//
// Errors raised on a specific netlist node carry its name in Node, which
// [NodeOf] recovers through any amount of wrapping.
//
// # Usage
//
//	err := errors.StructuralAt(n, "input %d has no driver", i)
//	if errors.Is(err, errors.ErrCodeStructuralInvariant) {
//	    log.Error("compiler bug", "node", errors.NodeOf(err))
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "fixture %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Compiler-bug class errors
	ErrCodeStructuralInvariant Code = "STRUCTURAL_INVARIANT"
	ErrCodeUnsupportedPattern  Code = "UNSUPPORTED_PATTERN"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidName    Code = "INVALID_NAME"
	ErrCodeInvalidFixture Code = "INVALID_FIXTURE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
	ErrCodeCanceled Code = "CANCELED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Node    string // Offending netlist node (optional)
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error formats as "CODE: node: message: cause", omitting empty parts.
func (e *Error) Error() string {
	msg := e.Message
	if e.Node != "" {
		msg = e.Node + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// At creates an Error attributed to node.
func At(code Code, node fmt.Stringer, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Node = node.String()
	return e
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NodeOf returns the node of the outermost *Error in err's chain that
// names one, or "".
func NodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Node != "" {
			return e.Node
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns the message of the first *Error in err's chain,
// prefixed with its node, without the code. Other errors are returned
// as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Node != "" {
			return e.Node + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err belongs to a class that must abort the whole
// compilation (structural invariant violations and unsupported patterns).
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeStructuralInvariant, ErrCodeUnsupportedPattern:
		return true
	}
	return false
}

// Structural is shorthand for New(ErrCodeStructuralInvariant, ...).
func Structural(format string, args ...any) *Error {
	return New(ErrCodeStructuralInvariant, format, args...)
}

// StructuralAt is shorthand for At(ErrCodeStructuralInvariant, ...).
func StructuralAt(node fmt.Stringer, format string, args ...any) *Error {
	return At(ErrCodeStructuralInvariant, node, format, args...)
}

// Unsupported is shorthand for New(ErrCodeUnsupportedPattern, ...).
func Unsupported(format string, args ...any) *Error {
	return New(ErrCodeUnsupportedPattern, format, args...)
}
