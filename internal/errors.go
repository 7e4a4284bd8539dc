package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized   ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden      ErrorType = "FORBIDDEN"
	ErrorTypeConflict       ErrorType = "CONFLICT"
	ErrorTypeAmountMismatch ErrorType = "AMOUNT_MISMATCH"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal       ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeAmountTooLow     ErrorCode = "AMOUNT_TOO_LOW"
	ErrCodeAmountTooHigh    ErrorCode = "AMOUNT_TOO_HIGH"
	ErrCodeInvalidPixKey    ErrorCode = "INVALID_PIX_KEY"

	ErrCodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeTransactionFinal    ErrorCode = "TRANSACTION_ALREADY_FINAL"
	ErrCodeTransactionExpired  ErrorCode = "TRANSACTION_EXPIRED"
	ErrCodeStatusConflict      ErrorCode = "STATUS_CONFLICT"
	ErrCodeAmountMismatch      ErrorCode = "AMOUNT_MISMATCH"

	ErrCodeWalletNotFound  ErrorCode = "WALLET_NOT_FOUND"
	ErrCodeDuplicateCredit ErrorCode = "DUPLICATE_CREDIT"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeChargeCreationFailed ErrorCode = "CHARGE_CREATION_FAILED"
	ErrCodeInvalidSignature     ErrorCode = "INVALID_WEBHOOK_SIGNATURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError marks a lost optimistic transition. Callers resolve it by
// re-reading the row; it must never reach an HTTP response.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewAmountMismatchError is a business error: the acquirer confirmed an
// amount that disagrees with the charge. The transaction stays pending.
func NewAmountMismatchError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAmountMismatch,
		Code:       ErrCodeAmountMismatch,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       "EXTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

var (
	ErrTransactionNotFound = NewNotFoundError("Transaction not found", ErrCodeTransactionNotFound)
	ErrStatusConflict      = NewConflictError("transaction status changed concurrently", ErrCodeStatusConflict)
	ErrWalletNotFound      = NewNotFoundError("Wallet not found", ErrCodeWalletNotFound)

	ErrUserNotFound       = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// IsConflict reports whether err is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeConflict
	}
	return false
}

// IsNotFound reports whether err means the record does not exist, as opposed
// to a store failure the caller must surface as an internal error.
func IsNotFound(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeNotFound
	}
	return false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
