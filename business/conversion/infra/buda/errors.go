package buda

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/httpclient"
)

const (
	unknownErrorMessage = "Unknown error"
	invalidJSONMessage  = "Invalid JSON response"
)

// APIError is a non-2xx response from Buda.
type APIError struct {
	StatusCode int
	Message    string // status-derived, user facing
}

func (e *APIError) Error() string {
	return e.Message
}

// budaErrorHandler turns non-2xx responses into *APIError.
func budaErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    statusMessage(statusCode, errorMessage(body)),
	}
}

func errorMessage(body []byte) string {
	var payload APIErrorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return invalidJSONMessage
	}
	if payload.Message == nil {
		return unknownErrorMessage
	}
	return *payload.Message
}

func statusMessage(statusCode int, msg string) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Bad Request: " + msg
	case http.StatusUnauthorized:
		return "Unauthorized: " + msg
	case http.StatusForbidden:
		return "Forbidden: " + msg
	case http.StatusNotFound:
		return "Not Found: " + msg
	case http.StatusTooManyRequests:
		return "Rate Limit Exceeded: " + msg
	default:
		return fmt.Sprintf("API Error (%d): %s", statusCode, msg)
	}
}

// isBreakerSuccess reports whether err leaves the breaker closed. Client
// errors answered by Buda mean the API is up.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
}

// toAppError maps a failed call onto the provider error codes.
func toAppError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apperror.Provider(apperror.CodeBudaAPIError, apiErr.Message, err)
	case errors.Is(err, httpclient.ErrDecodeResult), errors.Is(err, errInvalidPayload):
		return apperror.Provider(apperror.CodeBudaInvalidResponse, invalidJSONMessage, err)
	default:
		return apperror.Provider(apperror.CodeBudaConnectionFailed, "", err)
	}
}

var errInvalidPayload = errors.New("buda: invalid payload")
