package errors

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-stacks-mint/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeMintInProgress   ErrorCode = "mint_in_progress"
	ErrCodeMintRejected     ErrorCode = "mint_rejected"
	ErrCodePayloadTooLarge  ErrorCode = "payload_too_large"

	// Server errors (5xx)
	ErrCodeInternalError     ErrorCode = "internal_error"
	ErrCodeLedgerUnavailable ErrorCode = "ledger_unavailable"
	ErrCodeUploadFailed      ErrorCode = "upload_failed"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return string(e.Code) + ": " + e.Message + " (" + e.Details + ")"
	}
	return string(e.Code) + ": " + e.Message
}

// Response is the error envelope every failed request answers with
type Response struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewResponse wraps an APIError in the error envelope
func NewResponse(err *APIError) Response {
	return Response{Success: false, Error: err}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewNotFoundError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewValidationError(details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Validation failed",
		Details: strings.Join(details, ", "),
	}
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewForbiddenError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewInternalError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeInternalError,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// FromDomain maps an error returned by the minting or store layers to an HTTP status and
// an APIError. Internal details are not exposed for server errors.
func FromDomain(err error) (int, *APIError) {
	var rejected *domain.RejectedError
	switch {
	case stderrors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, NewValidationError(err.Error())
	case stderrors.Is(err, domain.ErrMintInProgress):
		return http.StatusConflict, &APIError{Code: ErrCodeMintInProgress, Message: "Another mint is in progress, retry shortly"}
	case stderrors.As(err, &rejected):
		return http.StatusUnprocessableEntity, &APIError{Code: ErrCodeMintRejected, Message: "Mint rejected by the ledger", Details: rejected.Reason}
	case stderrors.Is(err, domain.ErrMintRejected):
		return http.StatusUnprocessableEntity, &APIError{Code: ErrCodeMintRejected, Message: "Mint rejected by the ledger"}
	case stderrors.Is(err, domain.ErrAssetNotFound):
		return http.StatusNotFound, NewNotFoundError("Asset not found")
	case stderrors.Is(err, domain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, &APIError{Code: ErrCodeLedgerUnavailable, Message: "Ledger is unavailable, retry later"}
	case stderrors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, &APIError{Code: ErrCodeUploadFailed, Message: "Failed to store media or metadata"}
	default:
		return http.StatusInternalServerError, NewInternalError("Internal server error")
	}
}
