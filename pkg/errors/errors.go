// Package errors provides structured error types for opensurgery.
//
// An [Error] carries a machine-readable [Code], a message, the patch names
// it concerns and an optional cause. The CLI prints it, the HTTP API maps
// its [Class] to a status code, and the compiler decides from the code
// whether an instruction failure ends the compile.
//
// # Error Codes
//
// Codes fall into the categories the compiler reports:
//   - SIZING: the requested topology does not fit the block dimensions
//   - ROUTING: no ancilla path, or no oriented ancilla next to a patch
//   - NO_SPACE, CAPACITY_EXCEEDED: placement impossibilities
//   - LIVENESS: unknown or inactive patch names
//   - INVALID_*: malformed input
//   - INFEASIBLE: the estimator cannot reach the target error rate
//
// # Usage
//
//	err := errors.New(errors.ErrCodeRouting, "no route between %s and %s", a, b)
//	if errors.Is(err, errors.ErrCodeRouting) {
//	    // Handle routing failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "read %s", path)
//
//	// Name the patches involved
//	err := errors.New(errors.ErrCodeRouting, "no ancilla route").WithPatches("0", "3")
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidInstruction Code = "INVALID_INSTRUCTION"
	ErrCodeInvalidFormat      Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"
	ErrCodeInvalidName        Code = "INVALID_NAME"

	// Compiler errors
	ErrCodeSizing   Code = "SIZING"
	ErrCodeRouting  Code = "ROUTING"
	ErrCodeNoSpace  Code = "NO_SPACE"
	ErrCodeCapacity Code = "CAPACITY_EXCEEDED"
	ErrCodeLiveness Code = "LIVENESS"

	// Estimator errors
	ErrCodeInfeasible Code = "INFEASIBLE"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeStorage  Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error.
type Error struct {
	Code    Code
	Message string
	// Patches names the logical patches the failure concerns, if any.
	Patches []string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if len(e.Patches) > 0 {
		msg += " [patches " + strings.Join(e.Patches, " ") + "]"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithPatches records the patch names involved and returns e.
func (e *Error) WithPatches(names ...string) *Error {
	e.Patches = append(e.Patches, names...)
	return e
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// PatchesOf collects the patch names recorded anywhere in err's chain,
// outermost first and without duplicates.
func PatchesOf(err error) []string {
	var names []string
	seen := make(map[string]bool)
	for err != nil {
		if e, ok := err.(*Error); ok {
			for _, n := range e.Patches {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return names
}

// Class groups codes by who is at fault.
type Class int

const (
	// ClassInternal is a bug or an infrastructure failure.
	ClassInternal Class = iota
	// ClassInput is malformed input: a bad stream, option or document.
	ClassInput
	// ClassCompile is well-formed input the compiler or estimator cannot
	// satisfy on the requested topology.
	ClassCompile
	ClassNotFound
	ClassUnsupported
)

// ClassOf returns the class of code.
func ClassOf(code Code) Class {
	switch code {
	case ErrCodeInvalidInput, ErrCodeInvalidInstruction, ErrCodeInvalidFormat,
		ErrCodeInvalidConfig, ErrCodeInvalidName:
		return ClassInput
	case ErrCodeSizing, ErrCodeRouting, ErrCodeNoSpace, ErrCodeCapacity,
		ErrCodeLiveness, ErrCodeInfeasible:
		return ClassCompile
	case ErrCodeNotFound:
		return ClassNotFound
	case ErrCodeUnsupported:
		return ClassUnsupported
	}
	return ClassInternal
}

// IsFatal reports whether the code aborts a compile. Every compiler code is
// fatal; only input and storage problems outside the instruction loop are not.
func IsFatal(code Code) bool {
	switch code {
	case ErrCodeSizing, ErrCodeRouting, ErrCodeNoSpace, ErrCodeCapacity,
		ErrCodeLiveness, ErrCodeInvalidInstruction, ErrCodeInternal:
		return true
	}
	return false
}
