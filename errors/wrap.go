package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the original error.
// The wrapped error is accessible via Unwrap() and compatible with errors.Is and errors.As.
//
// If the wrapped error is a PlatformError, its classification is preserved.
// Otherwise, the default classification for the error code is used.
//
// Returns nil if err is nil.
//
// Example:
//
//	if err := wc.FetchBranch(ctx, opts); err != nil {
//	    return errors.Wrap(err, errors.CodeNetwork, "failed to fetch branch")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var platformErr PlatformError
	if errors.As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps an error with a formatted message while preserving the original error.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) PlatformError {
	if err == nil {
		return nil
	}

	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps an error and attaches context metadata in a single operation.
// The context map is copied to prevent external mutation.
//
// Returns nil if err is nil.
//
// Example:
//
//	return errors.WrapWithContext(err, errors.CodeIO, "failed to create working directory", map[string]interface{}{
//	    "identity": id,
//	    "dir":      dir,
//	})
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) PlatformError {
	if err == nil {
		return nil
	}

	wrapped, _ := Wrap(err, code, message).(*platformError)
	if ctx != nil {
		wrapped.context = make(map[string]interface{}, len(ctx))
		for k, v := range ctx {
			wrapped.context[k] = v
		}
	}
	return wrapped
}
