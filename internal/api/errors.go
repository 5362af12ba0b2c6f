package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode represents machine-readable error codes
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidJSON  ErrorCode = "INVALID_JSON"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeStore marks a record-store failure. Callers must be able to
	// tell a failed count apart from a zero count.
	ErrCodeStore ErrorCode = "STORE_ERROR"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error     string    `json:"error"`                // HTTP status text
	Message   string    `json:"message"`              // Human-readable description
	Code      ErrorCode `json:"code"`                 // Machine-readable error code
	RequestID string    `json:"request_id,omitempty"` // Request ID for debugging
}

// NewErrorResponse creates a new error response
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	}
}

// writeErrorResponse writes a structured error response to the http response writer
func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errResp *ErrorResponse) {
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		errResp.RequestID = reqID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errResp)
}

// ValidationError creates a validation error response
func ValidationError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusBadRequest,
		NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, message))
}

// BadRequestError creates a bad request error response
func BadRequestError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeErrorResponse(w, r, http.StatusBadRequest,
		NewErrorResponse(http.StatusBadRequest, code, message))
}

// UnauthorizedError creates an unauthorized error response
func UnauthorizedError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusUnauthorized,
		NewErrorResponse(http.StatusUnauthorized, ErrCodeUnauthorized, message))
}

// ForbiddenError creates a forbidden error response
func ForbiddenError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusForbidden,
		NewErrorResponse(http.StatusForbidden, ErrCodeForbidden, message))
}

// StoreError reports a failed store operation. Never paired with a default
// value: a store failure aborts the operation rather than reporting zero.
func StoreError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusInternalServerError,
		NewErrorResponse(http.StatusInternalServerError, ErrCodeStore, message))
}

// InternalError creates an internal server error response
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusInternalServerError,
		NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, message))
}
