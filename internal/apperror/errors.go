package apperror

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
)

// Code is the stable machine-readable error code sent to clients.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeInvalidToken         Code = "INVALID_TOKEN"
	CodeTokenExpired         Code = "TOKEN_EXPIRED"
	CodeAccessDenied         Code = "ACCESS_DENIED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeUnitNotFound         Code = "UNIT_NOT_FOUND"
	CodeInvalidQRToken       Code = "INVALID_QR_TOKEN"
	CodeRegistration         Code = "REGISTRATION_ERROR"
	CodeRegistrationNotFound Code = "REGISTRATION_NOT_FOUND"
	CodeDatabase             Code = "DB_ERROR"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the only error type that crosses the HTTP boundary with its own
// status and message. Everything else is reported as INTERNAL_ERROR.
type Error struct {
	Code    Code
	Message string
	Status  int
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a client-visible detail field.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusOf(code)}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusOf(code), Cause: err}
}

func statusOf(code Code) int {
	switch code {
	case CodeValidation, CodeUnitNotFound, CodeInvalidQRToken, CodeRegistration:
		return fiber.StatusBadRequest
	case CodeUnauthorized, CodeInvalidToken, CodeTokenExpired:
		return fiber.StatusUnauthorized
	case CodeAccessDenied:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

func AccessDenied(message string) *Error {
	return New(CodeAccessDenied, message)
}

func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found")
}

func UnitNotFound(unitCode string) *Error {
	return New(CodeUnitNotFound, "unit not found").WithDetail("unit_code", unitCode)
}

func InvalidQRToken(cause error) *Error {
	return Wrap(cause, CodeInvalidQRToken, "invalid or expired QR token")
}

func RegistrationNotFound() *Error {
	return New(CodeRegistrationNotFound, "registration row missing after upsert")
}

// DB wraps a driver error. The MySQL error number, when there is one, is
// exposed as db_code so operators can tell constraint failures from outages.
func DB(err error) *Error {
	return Wrap(err, CodeDatabase, "database error").WithDBCode(err)
}

// WithDBCode copies the MySQL error number of err, if any, into details.
func (e *Error) WithDBCode(err error) *Error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		e.WithDetail("db_code", myErr.Number)
	}
	return e
}

// From returns err as *Error, wrapping unknown errors as INTERNAL_ERROR.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &Error{Code: codeForStatus(fiberErr.Code), Message: fiberErr.Message, Status: fiberErr.Code}
	}
	return Wrap(err, CodeInternal, "internal server error")
}

func codeForStatus(status int) Code {
	switch status {
	case fiber.StatusBadRequest:
		return CodeValidation
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeAccessDenied
	case fiber.StatusNotFound:
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
