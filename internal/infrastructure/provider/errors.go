// Package provider 实现各提供商的协议适配
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"z-consensus-api/internal/domain/entity"
)

// ErrorKind 错误类别，可重试性由类别决定而非底层异常类型
type ErrorKind string

const (
	// KindAuth 凭证缺失或无效，不可重试
	KindAuth ErrorKind = "auth_error"
	// KindRateLimited 提供商限流，可退避重试
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout 网络或提供商超时，可重试
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable 上游暂时不可用（5xx、连接失败），可重试
	KindUnavailable ErrorKind = "unavailable"
	// KindBadRequest 请求本身不合法（参数错误、模型不支持），不可重试
	KindBadRequest ErrorKind = "bad_request"
	// KindMalformedResponse 无法解析的提供商输出，可在预算内重试
	KindMalformedResponse ErrorKind = "malformed_response"
)

// Error 一次提供商调用的分类错误
type Error struct {
	Kind     ErrorKind
	Provider entity.ProviderType
	Model    string
	Status   int // HTTP 状态码，非 HTTP 层错误为 0
	Message  string
	Err      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s: %s", e.Provider, e.Model, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable 该类错误是否值得重试
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable, KindMalformedResponse:
		return true
	}
	return false
}

// KindOf 提取错误的类别，非分类错误返回空串
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// classifyStatus HTTP 状态码到错误类别的映射
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 400 && status < 500:
		return KindBadRequest
	default:
		return KindUnavailable
	}
}

// statusError 由非 2xx 响应构造分类错误
func statusError(pt entity.ProviderType, model string, status int, body []byte) *Error {
	return &Error{
		Kind:     classifyStatus(status),
		Provider: pt,
		Model:    model,
		Status:   status,
		Message:  bodySnippet(body),
	}
}

// transportError 由传输层错误构造分类错误
// 取消的调用与自然超时走同一条路径
func transportError(pt entity.ProviderType, model string, err error) *Error {
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	} else {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			kind = KindTimeout
		}
	}
	return &Error{
		Kind:     kind,
		Provider: pt,
		Model:    model,
		Message:  "request failed",
		Err:      err,
	}
}

// malformedError 由不可解析的响应体构造分类错误
func malformedError(pt entity.ProviderType, model, message string, body []byte) *Error {
	if snippet := bodySnippet(body); snippet != "" {
		message = message + ": " + snippet
	}
	return &Error{
		Kind:     KindMalformedResponse,
		Provider: pt,
		Model:    model,
		Message:  message,
	}
}

// bodySnippet 截取响应体前缀用于诊断，按 rune 截断避免撕裂多字节字符
func bodySnippet(body []byte) string {
	const maxRunes = 300
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
