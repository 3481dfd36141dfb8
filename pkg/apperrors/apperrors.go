package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error type every handler and repository returns.
// Code is stable and machine readable, Message is for humans.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Status maps the error code onto the HTTP status used for the response.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation, CodeSelfReference:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeAlreadyExists, CodeNotFollowing:
		return http.StatusConflict
	case CodeUnauthorized, CodeExpired:
		return http.StatusUnauthorized
	case CodeDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(CodeValidation, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func NotAuthorized(msg string) error {
	return New(CodeNotAuthorized, msg)
}

func SelfReference(msg string) error {
	return New(CodeSelfReference, msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func NotFollowing(msg string) error {
	return New(CodeNotFollowing, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthorized, msg)
}

func Expired(msg string) error {
	return New(CodeExpired, msg)
}

func Delivery(msg string, cause error) error {
	return Wrap(CodeDelivery, msg, cause)
}

// Storage wraps a backing-store failure. Internal detail stays in Cause
// and is never serialized to the caller.
func Storage(msg string, cause error) error {
	return Wrap(CodeStorage, msg, cause)
}

// From extracts an *AppError from err, or nil if it is not one.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
