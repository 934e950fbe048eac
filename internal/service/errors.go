package service

import (
	"errors"
	"fmt"
)

// ErrUnauthorized 平台返回401，令牌已失效
var ErrUnauthorized = errors.New("平台令牌无效")

// ErrInsufficientCredits 用户积分不足，不允许发起渲染
var ErrInsufficientCredits = errors.New("积分不足")

// UpstreamError 第三方服务调用失败，区分可重试的网关错误和硬性失败
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s 服务调用失败 (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

func NewUpstreamError(provider string, statusCode int, message string) *UpstreamError {
	retryable := statusCode == 502 || statusCode == 503 || statusCode == 504
	return &UpstreamError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// IsRetryable 判断错误是否为可重试的上游瞬时错误
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}
