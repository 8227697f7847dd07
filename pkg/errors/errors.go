package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-visible error taxonomy code. Codes are part of the
// wire contract and never change between releases.
type Code string

// Structural codes. Errors carrying these abort the call entirely.
const (
	CodeScopeIncomplete  Code = "ScopeIncomplete"
	CodeDraftNotFound    Code = "DraftNotFound"
	CodeDraftExpired     Code = "DraftExpired"
	CodeMappingNotSet    Code = "MappingNotSet"
	CodeAlreadyConfirmed Code = "AlreadyConfirmed"
	CodeConflict         Code = "Conflict"
	CodeStorageError     Code = "StorageError"
)

// Row-level codes. These travel inside preview/commit payloads as data and
// are never raised as Go errors.
const (
	CodeUnknownStudent   Code = "UnknownStudent"
	CodeInvalidRange     Code = "InvalidRange"
	CodeInvalidFormat    Code = "InvalidFormat"
	CodeDuplicateStudent Code = "DuplicateStudent"
)

// Error is a taxonomy error: a stable code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
