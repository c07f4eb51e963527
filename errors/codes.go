// Package errors provides the structured error values used across gitfs.
// It extends Go's standard error handling with error codes, retry classification,
// context preservation, and JSON serialization for the HTTP surface.
package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeConflict indicates the local working tree cannot be reconciled with the
	// tree being checked out.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeUnauthorized indicates the remote rejected or required credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeReadOnly indicates a mutating operation against the read-only filesystem.
	CodeReadOnly ErrorCode = "READ_ONLY_FILESYSTEM"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration value cannot be used.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeConfigConflict indicates one setting was given different values by
	// two configuration sources.
	CodeConfigConflict ErrorCode = "CONFIGURATION_CONFLICT"

	// Infrastructure errors.

	// CodeIO indicates a local disk operation failed.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeExecutionFailed indicates an external command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeNotImplemented indicates the requested functionality is not implemented.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeUnavailable indicates the target is temporarily unavailable, for
	// example a mount that has already been dismounted.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
