package errors

import (
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

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
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

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodePropensityFit     = "PROPENSITY_FIT"
	CodeWeightComputation = "WEIGHT_COMPUTATION"
	CodeTrimming          = "TRIMMING"
	CodeDoublyRobust      = "DOUBLY_ROBUST"
	CodeBootstrap         = "BOOTSTRAP"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// PropensityFit reports a failed propensity model fit. The message should
// identify the model strategy and, when known, the offending covariate.
func PropensityFit(format string, args ...interface{}) *AppError {
	return Newf(CodePropensityFit, format, args...)
}

// WeightComputation reports an invalid per-unit weight. The message should
// identify the unit index and scheme.
func WeightComputation(format string, args ...interface{}) *AppError {
	return Newf(CodeWeightComputation, format, args...)
}

// Trimming reports a trimming policy that left no usable estimate.
func Trimming(format string, args ...interface{}) *AppError {
	return Newf(CodeTrimming, format, args...)
}

// DoublyRobust reports a missing or unfit constituent model.
func DoublyRobust(format string, args ...interface{}) *AppError {
	return Newf(CodeDoublyRobust, format, args...)
}

// Bootstrap reports a failed resampling run.
func Bootstrap(format string, args ...interface{}) *AppError {
	return Newf(CodeBootstrap, format, args...)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
