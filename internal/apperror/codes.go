package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// External service errors
	CodeServiceTimeout    Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Conversion-specific error codes
const (
	// Request validation
	CodeMissingParameter    Code = "MISSING_PARAMETER"
	CodeUnsupportedCurrency Code = "UNSUPPORTED_CURRENCY"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"

	// Path search
	CodeNoConversionPath Code = "NO_CONVERSION_PATH"

	// Buda market data errors
	CodeBudaAPIError         Code = "BUDA_API_ERROR"
	CodeBudaConnectionFailed Code = "BUDA_CONNECTION_FAILED"
	CodeBudaInvalidResponse  Code = "BUDA_INVALID_RESPONSE"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)

// Category groups codes by how callers are expected to react to them.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNoPath     Category = "no_path"
	CategoryProvider   Category = "provider"
	CategoryUnexpected Category = "unexpected"
)

// categories maps each code to its category. Codes missing here are unexpected.
var categories = map[Code]Category{
	CodeMissingParameter:    CategoryValidation,
	CodeUnsupportedCurrency: CategoryValidation,
	CodeInvalidAmount:       CategoryValidation,

	CodeNoConversionPath: CategoryNoPath,

	CodeServiceTimeout:       CategoryProvider,
	CodeRateLimitExceeded:    CategoryProvider,
	CodeBudaAPIError:         CategoryProvider,
	CodeBudaConnectionFailed: CategoryProvider,
	CodeBudaInvalidResponse:  CategoryProvider,
	CodeCircuitOpen:          CategoryProvider,
	CodeCircuitHalfOpen:      CategoryProvider,
}

// CategoryOf returns the category of the given code.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryUnexpected
}
