package errors

// ErrorClassification indicates whether an error should trigger a retry.
// The refresher uses it to tell transient remote failures from permanent ones.
type ErrorClassification string

const (
	// ClassificationRetryable indicates temporary failures that may succeed on retry.
	// Examples: network failures, timeouts, a mount dismounted under a reader.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates failures that will not succeed on retry.
	// Examples: read-only violations, checkout conflicts, configuration conflicts.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

// defaultClassifications maps error codes to their default classification.
var defaultClassifications = map[ErrorCode]ErrorClassification{
	// Retryable errors (temporary failures)
	CodeTimeout:     ClassificationRetryable,
	CodeNetwork:     ClassificationRetryable,
	CodeUnavailable: ClassificationRetryable,
	CodeIO:          ClassificationRetryable,

	// Permanent errors (will not succeed on retry)
	CodeNotFound:        ClassificationPermanent,
	CodeAlreadyExists:   ClassificationPermanent,
	CodeConflict:        ClassificationPermanent,
	CodeUnauthorized:    ClassificationPermanent,
	CodeReadOnly:        ClassificationPermanent,
	CodeInvalidInput:    ClassificationPermanent,
	CodeInvalidConfig:   ClassificationPermanent,
	CodeConfigConflict:  ClassificationPermanent,
	CodeExecutionFailed: ClassificationPermanent,
	CodeNotImplemented:  ClassificationPermanent,

	// System errors
	CodeInternal: ClassificationPermanent,
	CodeUnknown:  ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Returns ClassificationPermanent if the code is not in the map.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
