package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError anywhere in the chain
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the outermost AppError code in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether any AppError in the chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeFormatUnavailable = "FORMAT_UNAVAILABLE"
	CodeIO                = "IO_ERROR"
	CodeDecode            = "DECODE_ERROR"
	CodeEncode            = "ENCODE_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

// IOError wraps a filesystem failure for path
func IOError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeIO,
		Message: fmt.Sprintf("i/o failed for %s", path),
		Cause:   cause,
	}
}

// DecodeError wraps a failure to read format from path
func DecodeError(format, path string, cause error) *AppError {
	return &AppError{
		Code:    CodeDecode,
		Message: fmt.Sprintf("failed to read %s file %s", format, path),
		Cause:   cause,
	}
}

// EncodeError wraps a failure to write format to path
func EncodeError(format, path string, cause error) *AppError {
	return &AppError{
		Code:    CodeEncode,
		Message: fmt.Sprintf("failed to write %s file %s", format, path),
		Cause:   cause,
	}
}

// UnsupportedFormat reports a path whose suffix no codec handles
func UnsupportedFormat(cause error) *AppError {
	return &AppError{
		Code:    CodeUnsupportedFormat,
		Message: "no codec for file",
		Cause:   cause,
	}
}

// FormatUnavailable reports a codec compiled out of this build
func FormatUnavailable(format string, cause error) *AppError {
	return &AppError{
		Code:    CodeFormatUnavailable,
		Message: fmt.Sprintf("%s support is not compiled in", format),
		Cause:   cause,
	}
}
