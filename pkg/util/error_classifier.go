package util

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Error kinds returned by ClassifyError
const (
	KindNone            = ""
	KindNetworkError    = "network_error"
	KindNetworkTimeout  = "network_timeout"
	KindTimeout         = "timeout"
	KindContextCanceled = "context_canceled"
	KindUnknown         = "unknown_error"
)

// ClassifyError maps an error onto a coarse kind by inspecting its chain.
// Only typed errors are consulted; message text is never matched.
func ClassifyError(err error) string {
	if err == nil {
		return KindNone
	}

	// 调用方主动取消 - 不属于网络错误
	if errors.Is(err, context.Canceled) {
		return KindContextCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	// URL errors wrap every transport failure from http.Client
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// 地址解析失败是配置问题，不是网络问题
		if urlErr.Op == "parse" {
			return KindUnknown
		}
		if urlErr.Timeout() {
			return KindNetworkTimeout
		}
		return KindNetworkError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindNetworkTimeout
		}
		return KindNetworkError
	}

	return KindUnknown
}

// IsNetworkKind reports whether kind denotes a connectivity problem
func IsNetworkKind(kind string) bool {
	switch kind {
	case KindNetworkError, KindNetworkTimeout, KindTimeout:
		return true
	default:
		return false
	}
}
