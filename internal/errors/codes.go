package errors

// ErrorCode represents a standardized error code used throughout the engine's API
type ErrorCode string

// Pattern store error codes (PATTERN_*)
const (
	PatternInvalidRegex   ErrorCode = "PATTERN_001"
	PatternNotUserDefined ErrorCode = "PATTERN_002"
	PatternNotFound       ErrorCode = "PATTERN_003"
	PatternAlreadyExists  ErrorCode = "PATTERN_004"
)

// Resolution error codes (RECON_*)
const (
	ReconConflictingResolution ErrorCode = "RECON_001"
	ReconNotManuallyExcluded   ErrorCode = "RECON_002"
	ReconNotFound              ErrorCode = "RECON_003"
	ReconInvalidCandidate      ErrorCode = "RECON_004"
	ReconDetectionAborted      ErrorCode = "RECON_005"
)

// Account matching error codes (MATCH_*)
const (
	MatchInvalidAccountType ErrorCode = "MATCH_001"
	MatchNameRequired       ErrorCode = "MATCH_002"
)

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
	ValidationInvalidDate   ErrorCode = "VALIDATION_005"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemDatabaseError      ErrorCode = "SYSTEM_002"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_004"
)

// errorMessages maps error codes to their default human-readable messages
var errorMessages = map[ErrorCode]string{
	// Pattern store errors
	PatternInvalidRegex:   "Pattern expression does not compile",
	PatternNotUserDefined: "Only user-defined patterns can be deleted; deactivate auto-learned patterns instead",
	PatternNotFound:       "Pattern not found",
	PatternAlreadyExists:  "An active pattern with this expression and match type already exists",

	// Resolution errors
	ReconConflictingResolution: "Transaction is part of a confirmed duplicate; unconfirm it before changing its exclusion",
	ReconNotManuallyExcluded:   "Transaction exclusion is owned by a confirmed duplicate and can only be removed by unconfirming it",
	ReconNotFound:              "Confirmed duplicate or exclusion not found",
	ReconInvalidCandidate:      "Match candidate is missing required member transactions",
	ReconDetectionAborted:      "Detection pass aborted; no candidates were produced",

	// Account matching errors
	MatchInvalidAccountType: "Unknown investment account type",
	MatchNameRequired:       "Account name is required for matching",

	// Validation errors
	ValidationGeneral:       "Validation failed",
	ValidationRequiredField: "Required field is missing",
	ValidationInvalidFormat: "Invalid field format",
	ValidationOutOfRange:    "Field value is out of allowed range",
	ValidationInvalidDate:   "Invalid date format or range",

	// System errors
	SystemInternalError:      "An unexpected error occurred. Please contact support with trace ID",
	SystemDatabaseError:      "Database connection error",
	SystemServiceUnavailable: "Service temporarily unavailable",
	SystemRateLimitExceeded:  "Rate limit exceeded. Please try again later",
}

// GetErrorMessage returns the default message for a given error code
// If the error code is not found, it returns a generic error message
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "An error occurred"
}

// IsValidErrorCode checks if the provided error code is a valid registered code
func IsValidErrorCode(code ErrorCode) bool {
	_, ok := errorMessages[code]
	return ok
}
