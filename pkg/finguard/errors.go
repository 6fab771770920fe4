package finguard

import (
	"errors"
	"fmt"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeAnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	ErrCodeSessionBusy    ErrorCode = "SESSION_BUSY"
	ErrCodeDatabase       ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnsupported    ErrorCode = "UNSUPPORTED"
)

// Sentinel errors. Use errors.Is() to check for these conditions.
var (
	// ErrEmptyMessage indicates a chat submission with no visible content.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSessionBusy indicates a submission while the previous reply is still pending.
	ErrSessionBusy = errors.New("session is awaiting a reply")
	// ErrInvalidSymbol indicates the input is not a 1-5 letter uppercase ticker.
	ErrInvalidSymbol = errors.New("invalid symbol format")
	// ErrAnalysisFailed indicates the risk or sentiment sub-fetch failed.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrUnknownSymbol indicates the data source has no record of the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNoData indicates the data source answered without usable data.
	ErrNoData = errors.New("no data available")
	// ErrScoreOutOfRange indicates a sentiment score outside [-1, 1].
	ErrScoreOutOfRange = errors.New("sentiment score out of range")
	// ErrInconsistentSentiment indicates a classification that disagrees with its score.
	ErrInconsistentSentiment = errors.New("sentiment classification does not match score")
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error, or any error it wraps, carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
