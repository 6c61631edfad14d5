package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adonai404/empresas-imperial-sub001/constants"
)

// AppError represents application-specific errors. Message is the text shown
// to the operator; Cause carries the sentinel kind and any underlying error.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")

	ErrParse            = errors.New("parse error")
	ErrRateLimited      = errors.New("rate limited")
	ErrQuotaExhausted   = errors.New("quota exhausted")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrStorage          = errors.New("storage error")
	ErrBatchRejected    = errors.New("batch rejected")
)

// Error codes paired with the sentinels above.
const (
	CodeParse            = "PARSE_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeQuotaExhausted   = "QUOTA_EXHAUSTED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeStorage          = "STORAGE_ERROR"
	CodeBatchRejected    = "BATCH_REJECTED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// kindError joins a sentinel with the underlying failure so both errors.Is
// checks and the cause chain keep working.
func kindError(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return errors.Join(kind, cause)
}

// NewInternalError hides cause behind a generic message for clients.
func NewInternalError(cause error) *AppError {
	return NewAppError(CodeInternal, constants.MsgInternal, kindError(ErrInternal, cause))
}

func NewParseError(message string, cause error) *AppError {
	return NewAppError(CodeParse, message, kindError(ErrParse, cause))
}

func NewRateLimitedError(message string) *AppError {
	return NewAppError(CodeRateLimited, message, ErrRateLimited)
}

func NewQuotaExhaustedError(message string) *AppError {
	return NewAppError(CodeQuotaExhausted, message, ErrQuotaExhausted)
}

func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtractionFailed, message, kindError(ErrExtractionFailed, cause))
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(CodeValidationFailed, message, kindError(ErrValidation, cause))
}

func NewStorageError(message string, cause error) *AppError {
	return NewAppError(CodeStorage, message, kindError(ErrStorage, cause))
}

func NewBatchRejectedError(message string) *AppError {
	return NewAppError(CodeBatchRejected, message, ErrBatchRejected)
}

// UserMessage returns the operator-facing message for err: the outermost
// AppError message when there is one, the plain error text otherwise, and
// the generic fallback when both are empty.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && strings.TrimSpace(appErr.Message) != "" {
		return appErr.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return constants.MsgUnknownError
}

var rateLimitWording = []string{
	"429",
	"rate limit",
	"rate-limit",
	"too many requests",
	"limite de requisições",
}

// IsRateLimited reports whether err is a transient throttling failure.
// Besides the typed sentinel it matches the wording used by the extraction
// endpoint, since some failures only carry the server text. Only the
// user-facing message is matched, never values echoed in causes.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	for _, terminal := range []error{ErrQuotaExhausted, ErrValidation, ErrParse, ErrStorage, ErrBatchRejected} {
		if errors.Is(err, terminal) {
			return false
		}
	}
	msg := strings.ToLower(UserMessage(err))
	for _, w := range rateLimitWording {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
