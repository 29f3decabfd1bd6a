package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeListingFailed indicates a page could not be fetched from the item source.
	// Listing cannot resume from an unknown position, so this is always fatal.
	ErrCodeListingFailed ErrorCode = "LISTING_FAILED"
	// ErrCodeProcessingFailed indicates the processing callback failed for one item.
	ErrCodeProcessingFailed ErrorCode = "PROCESSING_FAILED"
	// ErrCodeAggregationFailed indicates the report aggregation routine failed.
	ErrCodeAggregationFailed ErrorCode = "AGGREGATION_FAILED"
)

// Validation errors
const (
	// ErrCodeInvalidConfig indicates the configuration is unusable.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Collaborator errors
const (
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeNotFound indicates the requested object was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeExternalService:  true,
	ErrCodeProcessingFailed: false,
	ErrCodeListingFailed:    false,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var fatalCodes = map[ErrorCode]bool{
	ErrCodeListingFailed:     true,
	ErrCodeAggregationFailed: true,
	ErrCodeInternal:          true,
}

// IsFatalCode returns true if an error with this code must stop the whole run.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
