package errors

import "fmt"

// New creates a new PlatformError with the given code and message.
// The error classification is determined by the error code using default mappings.
//
// Example:
//
//	err := errors.New(errors.CodeReadOnly, "read-only filesystem")
func New(code ErrorCode, message string) PlatformError {
	return &platformError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates a new PlatformError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeConfigConflict, "conflicting values for %s", key)
func Newf(code ErrorCode, format string, args ...interface{}) PlatformError {
	return &platformError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        fmt.Sprintf(format, args...),
	}
}
