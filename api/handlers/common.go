package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/adaptiverag/types"
)

// MaxRequestBodyBytes 请求体上限 1 MB
const MaxRequestBodyBytes = 1 << 20

// Response 是 JSON 端点的统一信封，入库成功例外（平铺返回）
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 错误信封的 error 字段
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON 写出状态码与 JSON 体
func WriteJSON(w http.ResponseWriter, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	// 头已发出，编码错误只能丢弃
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteError 把任意错误写成错误信封。
// 状态码优先取 *types.Error 上的 HTTPStatus，否则按错误码推导。
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	e := types.AsError(err)
	if e == nil {
		e = types.NewInternalError("unknown error")
	}
	status := e.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(e.Code)
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(e.Code)),
			zap.String("message", e.Message),
			zap.Int("status", status),
			zap.Bool("retryable", e.Retryable),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request failed", fields...)
		}
	}

	WriteJSON(w, status, Response{
		Error:     &ErrorInfo{Code: string(e.Code), Message: e.Message, Retryable: e.Retryable},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage 直接以给定状态码与错误码写出
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

var codeStatus = map[types.ErrorCode]int{
	types.ErrInvalidRequest:             http.StatusBadRequest,
	types.ErrUnauthorized:               http.StatusUnauthorized,
	types.ErrRateLimited:                http.StatusTooManyRequests,
	types.ErrRunCanceled:                types.StatusClientClosedRequest,
	types.ErrTimeout:                    http.StatusGatewayTimeout,
	types.ErrEvidenceStoreUnavailable:   http.StatusServiceUnavailable,
	types.ErrServiceUnavailable:         http.StatusServiceUnavailable,
	types.ErrClassificationParse:        http.StatusBadGateway,
	types.ErrWebSearchUnavailable:       http.StatusBadGateway,
	types.ErrJudgmentServiceUnavailable: http.StatusBadGateway,
	types.ErrSourceFetchFailed:          http.StatusBadGateway,
	types.ErrUpstreamError:              http.StatusBadGateway,
	types.ErrMaxIterationsExceeded:      http.StatusLoopDetected,
}

// 未列出的错误码（图配置、内部错误等）一律 500
func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DecodeJSONBody 严格解码请求体：拒绝空体、未知字段和超过 1 MB 的内容。
// 返回错误时 400 已写出。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	fail := func(msg string, cause error) error {
		e := types.NewInvalidRequestError(msg)
		if cause != nil {
			e = e.WithCause(cause)
		}
		WriteError(w, e, logger)
		return e
	}

	if r.Body == nil || r.Body == http.NoBody {
		return fail("request body is empty", nil)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fail("request body too large", err)
		}
		return fail("invalid JSON body", err)
	}
	return nil
}
