package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// External service errors
	CodeServiceTimeout:    "Service request timeout",
	CodeRateLimitExceeded: "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Request validation
	CodeMissingParameter:    "Missing required parameters: from_currency, to_currency, and amount are required",
	CodeUnsupportedCurrency: "Invalid currency",
	CodeInvalidAmount:       "Invalid amount: must be a non-negative number",

	// Path search
	CodeNoConversionPath: "No valid conversion path found",

	// Buda market data errors
	CodeBudaAPIError:         "Buda API error",
	CodeBudaConnectionFailed: "Failed to reach Buda API",
	CodeBudaInvalidResponse:  "Invalid JSON response",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
