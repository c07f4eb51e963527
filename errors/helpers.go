package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library errors.Is.
//
// Example:
//
//	if errors.Is(err, fs.ErrNotExist) {
//	    // No such file in the working copy
//	}
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library errors.As.
//
// Example:
//
//	var platformErr PlatformError
//	if errors.As(err, &platformErr) {
//	    code := platformErr.Code()
//	}
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// Returns CodeUnknown if the error is nil or not a PlatformError.
//
// This function handles the error chain and will extract the code from
// the outermost PlatformError in the chain.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeConflict {
//	    // Checkout could not reconcile the working tree
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Code()
	}

	return CodeUnknown
}

// GetClassification extracts the ErrorClassification from an error.
// Returns ClassificationPermanent if the error is nil or not a PlatformError.
// This is a safe default that prevents inappropriate retry attempts.
//
// This function handles the error chain and will extract the classification
// from the outermost PlatformError in the chain.
//
// Example:
//
//	classification := errors.GetClassification(err)
//	if classification == errors.ClassificationRetryable {
//	    // Retry logic
//	}
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Classification()
	}

	return ClassificationPermanent
}

// IsRetryable returns true if the error is classified as retryable.
// Returns false if the error is nil or not a PlatformError (safe default).
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    // Transient remote failure: keep serving the stale copy
//	}
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// HasCode reports whether any PlatformError in err's chain carries code.
// Unlike GetCode it looks past outer wrappers.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var platformErr PlatformError
		if !stderrors.As(err, &platformErr) {
			return false
		}
		if platformErr.Code() == code {
			return true
		}
		err = platformErr.Unwrap()
	}
	return false
}

// IsReadOnly reports whether err is a rejected mutation of the read-only filesystem.
func IsReadOnly(err error) bool {
	return HasCode(err, CodeReadOnly)
}
