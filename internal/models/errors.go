package models

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the API envelope.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeAlreadyFavorite    = "ALREADY_FAVORITE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidationError,
		Message: message,
	}
}

// NewFieldValidationError builds a validation error attributed to a single field.
func NewFieldValidationError(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidationError,
		Message: message,
		Field:   field,
	}
}

func NewEmailExistsError() *AppError {
	return &AppError{
		Code:    CodeEmailExists,
		Message: "Email is already registered",
		Field:   "email",
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password",
	}
}

func NewNoTokenError() *AppError {
	return &AppError{
		Code:    CodeNoToken,
		Message: "Authentication token required",
	}
}

func NewInvalidTokenError() *AppError {
	return &AppError{
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
	}
}

func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:    CodeUserNotFound,
		Message: "User not found",
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewAlreadyFavoriteError() *AppError {
	return &AppError{
		Code:    CodeAlreadyFavorite,
		Message: "Post is already in favorites",
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError writes the error envelope for the given status.
// Wrapped internal detail is exposed only outside production.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	apiErr := &APIError{
		Code:    CodeInternalError,
		Message: "Internal server error",
	}

	if appErr, ok := err.(*AppError); ok {
		apiErr.Code = appErr.Code
		apiErr.Message = appErr.Message
		apiErr.Field = appErr.Field
		if appErr.Err != nil && os.Getenv("APP_ENV") != "production" {
			apiErr.Details = appErr.Err.Error()
		}
	} else if err != nil && os.Getenv("APP_ENV") != "production" {
		apiErr.Details = err.Error()
	}

	return c.Status(status).JSON(Envelope{
		Success: false,
		Error:   apiErr,
	})
}
