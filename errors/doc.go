// Package errors provides structured errors with codes and retry
// classification for gitfs.
//
// # Error Codes
//
// Codes are grouped by the failure taxonomy of a gitfs mount:
//
//   - Resource errors: CodeNotFound, CodeAlreadyExists, CodeConflict
//   - Permission errors: CodeUnauthorized, CodeReadOnly
//   - Validation errors: CodeInvalidInput, CodeInvalidConfig, CodeConfigConflict
//   - Infrastructure errors: CodeIO, CodeNetwork, CodeTimeout, CodeExecutionFailed
//   - System errors: CodeInternal, CodeNotImplemented, CodeUnavailable
//   - Generic: CodeUnknown
//
// Construction of a mount surfaces every failure. A background refresh only
// logs failures classified as retryable and keeps serving the stale working
// copy. Mutations always fail with CodeReadOnly.
//
// # Classification
//
// Each code has a default classification. Wrapping preserves the
// classification of the innermost PlatformError, so a transport failure
// wrapped as "initial pull failed" is still retryable:
//
//	err := errors.Wrap(fetchErr, errors.CodeNetwork, "initial pull failed")
//	if errors.IsRetryable(err) {
//	    // ...
//	}
//
// # Standard Library Compatibility
//
// PlatformError works with errors.Is, errors.As and errors.Unwrap. Is and As
// are re-exported here so callers do not need both imports. CodeNotFound,
// CodeAlreadyExists and CodeReadOnly errors also match fs.ErrNotExist,
// fs.ErrExist and fs.ErrPermission, so io/fs callers need no knowledge of
// codes:
//
//	if errors.Is(err, fs.ErrNotExist) {
//	    // missing file, or a remote repository that does not exist
//	}
package errors
