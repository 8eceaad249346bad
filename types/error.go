package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request and transport error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrRunCanceled        ErrorCode = "RUN_CANCELED"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrConfiguration      ErrorCode = "CONFIGURATION_ERROR"
)

// Pipeline error codes
const (
	ErrGraphConfiguration         ErrorCode = "GRAPH_CONFIGURATION"
	ErrClassificationParse        ErrorCode = "CLASSIFICATION_PARSE"
	ErrEvidenceStoreUnavailable   ErrorCode = "EVIDENCE_STORE_UNAVAILABLE"
	ErrWebSearchUnavailable       ErrorCode = "WEB_SEARCH_UNAVAILABLE"
	ErrMaxIterationsExceeded      ErrorCode = "MAX_ITERATIONS_EXCEEDED"
	ErrJudgmentServiceUnavailable ErrorCode = "JUDGMENT_SERVICE_UNAVAILABLE"
	ErrSourceFetchFailed          ErrorCode = "SOURCE_FETCH_FAILED"
)

// StatusClientClosedRequest 非标准状态码，调用方主动断开时使用。
const StatusClientClosedRequest = 499

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError extracts a *Error from the chain. Anything else is wrapped as INTERNAL_ERROR,
// except context errors which map to TIMEOUT / RUN_CANCELED.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return FromContextError(err)
}

// FromContextError maps context errors to the taxonomy.
func FromContextError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrTimeout, "run deadline exceeded").
			WithCause(err).
			WithHTTPStatus(http.StatusGatewayTimeout).
			WithRetryable(true)
	case errors.Is(err, context.Canceled):
		return NewError(ErrRunCanceled, "run canceled by caller").
			WithCause(err).
			WithHTTPStatus(StatusClientClosedRequest)
	default:
		return NewError(ErrInternalError, "internal error").
			WithCause(err).
			WithHTTPStatus(http.StatusInternalServerError)
	}
}

// IsErrorCode reports whether any *Error in the chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewInvalidRequestError creates a 400 error.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewInternalError creates a 500 error.
func NewInternalError(message string) *Error {
	return NewError(ErrInternalError, message).WithHTTPStatus(http.StatusInternalServerError)
}

// NewGraphConfigurationError 图结构非法：缺少起点、边指向未知节点、标签未映射等。
func NewGraphConfigurationError(format string, args ...any) *Error {
	return NewError(ErrGraphConfiguration, fmt.Sprintf(format, args...)).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewClassificationParseError 判定服务返回的内容不符合预期结构。
func NewClassificationParseError(message string) *Error {
	return NewError(ErrClassificationParse, message).
		WithHTTPStatus(http.StatusBadGateway)
}

// NewEvidenceStoreUnavailableError 索引缺失、为空、身份不匹配或检索失败。
func NewEvidenceStoreUnavailableError(message string) *Error {
	return NewError(ErrEvidenceStoreUnavailable, message).
		WithHTTPStatus(http.StatusServiceUnavailable).
		WithRetryable(true)
}

// NewWebSearchUnavailableError web 搜索失败。
func NewWebSearchUnavailableError(message string) *Error {
	return NewError(ErrWebSearchUnavailable, message).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true)
}

// NewMaxIterationsExceededError 运行超过步数上限。
func NewMaxIterationsExceededError(maxSteps int) *Error {
	return NewError(ErrMaxIterationsExceeded, fmt.Sprintf("run exceeded the step cap of %d", maxSteps)).
		WithHTTPStatus(http.StatusLoopDetected).
		WithRetryable(true)
}

// NewJudgmentServiceUnavailableError 判定或生成服务调用失败（网络、鉴权、限流等）。
func NewJudgmentServiceUnavailableError(message string) *Error {
	return NewError(ErrJudgmentServiceUnavailable, message).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true)
}

// NewSourceFetchError 入库时抓取来源失败。
func NewSourceFetchError(source string) *Error {
	return NewError(ErrSourceFetchFailed, fmt.Sprintf("failed to fetch source %q", source)).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true)
}
