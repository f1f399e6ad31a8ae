package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Коды переходов жизненного цикла заявки и предложений.
	ErrCodeInvalidStatus  ErrorCode = "INVALID_STATUS"
	ErrCodeNotAssigned    ErrorCode = "NOT_ASSIGNED"
	ErrCodeSelfNotAllowed ErrorCode = "SELF_NOT_ALLOWED"
	ErrCodeCannotCancel   ErrorCode = "CANNOT_CANCEL"
	ErrCodeCannotUpdate   ErrorCode = "CANNOT_UPDATE"
	ErrCodeNotCompleted   ErrorCode = "NOT_COMPLETED"
	ErrCodeOfferNotFound  ErrorCode = "OFFER_NOT_FOUND"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeOfferNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotAssigned, ErrCodeSelfNotAllowed:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidStatus, ErrCodeCannotCancel, ErrCodeCannotUpdate, ErrCodeNotCompleted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && (appErr.Code == ErrCodeNotFound || appErr.Code == ErrCodeOfferNotFound)
}

func IsInvalidStatus(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidStatus
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// Code возвращает код ошибки или INTERNAL_ERROR для неизвестных ошибок.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

var (
	ErrRequestNotFound = New(ErrCodeNotFound, "заявка не найдена")
	ErrOfferNotFound   = New(ErrCodeOfferNotFound, "предложение не найдено")
	ErrAddressNotFound = New(ErrCodeNotFound, "адрес не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")
	ErrSelfNotAllowed  = New(ErrCodeSelfNotAllowed, "нельзя откликнуться на собственную заявку")
	ErrNotAssigned     = New(ErrCodeNotAssigned, "заявка закреплена за другим инженером")
	ErrInvalidStatus   = New(ErrCodeInvalidStatus, "операция недопустима в текущем статусе заявки")
	ErrCannotCancel    = New(ErrCodeCannotCancel, "заявку нельзя отменить в текущем статусе")
	ErrCannotUpdate    = New(ErrCodeCannotUpdate, "предложение нельзя изменить в текущем статусе")
	ErrNotCompleted    = New(ErrCodeNotCompleted, "оценка возможна только после завершения работы")
)
