package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrRateLimit    = fmt.Errorf("rate limit exceeded")
	ErrCircuitOpen  = fmt.Errorf("circuit open")
)

// Streaming and send-path sentinels.
var (
	ErrConnection      = fmt.Errorf("push channel connection failed")
	ErrMalformedEvent  = fmt.Errorf("malformed stream event")
	ErrSendFailure     = fmt.Errorf("send failed")
	ErrUnknownPartType = fmt.Errorf("unknown part type")
	ErrNotGenerating   = fmt.Errorf("message is not generating")
	ErrAlreadyAttached = fmt.Errorf("stream already attached")
)

// Infrastructure sentinels.
var (
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
	ErrDecryption = fmt.Errorf("decryption failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Sender.Send")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for logs and UI mapping.
type ErrorCode string

// Error codes. Every sentinel maps to exactly one code.
const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	CodeConnection      ErrorCode = "CONNECTION"
	CodeMalformedEvent  ErrorCode = "MALFORMED_EVENT"
	CodeSendFailure     ErrorCode = "SEND_FAILURE"
	CodeUnknownPartType ErrorCode = "UNKNOWN_PART_TYPE"
	CodeNotGenerating   ErrorCode = "NOT_GENERATING"
	CodeAlreadyAttached ErrorCode = "ALREADY_ATTACHED"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"
	CodeDecryption      ErrorCode = "DECRYPTION"
)

// errorCodes is ordered so the most specific sentinel wins when an error
// wraps several (a send failure caused by rate limiting reports RATE_LIMIT).
var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrRateLimit, CodeRateLimit},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrSendFailure, CodeSendFailure},
	{ErrConnection, CodeConnection},
	{ErrMalformedEvent, CodeMalformedEvent},
	{ErrUnknownPartType, CodeUnknownPartType},
	{ErrNotGenerating, CodeNotGenerating},
	{ErrAlreadyAttached, CodeAlreadyAttached},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrDecryption, CodeDecryption},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidInput, CodeInvalidInput},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeUnknown
}
