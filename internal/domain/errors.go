package domain

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind string

// 错误分类常量
const (
	KindNotFound   Kind = "not_found"  // 分页扫描穷尽仍未命中
	KindTransient  Kind = "transient"  // 上游 429/500/503，可重试
	KindTimeout    Kind = "timeout"    // 轮询预算耗尽（客户端放弃等待，非上游失败）
	KindValidation Kind = "validation" // 调用方输入缺失必填字段
	KindUnknown    Kind = "unknown"    // 其余错误，原样透传
)

// Error 结构化错误：稳定的分类 + 可选的上游状态码
// 重试器与下游状态码映射都消费这个契约，不再探测松散字段
type Error struct {
	Kind    Kind
	Status  int // 上游 HTTP 状态码，0 表示无
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 支持 errors.Is/As 链
func (e *Error) Unwrap() error {
	return e.Err
}

// UpstreamStatus 返回上游状态码，供重试分类器探测
func (e *Error) UpstreamStatus() int {
	return e.Status
}

// NotFoundf 构造 NotFound 错误
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Message: fmt.Sprintf(format, args...)}
}

// Validationf 构造 Validation 错误
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Timeoutf 构造 Timeout 错误
func Timeoutf(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...)}
}

// FromStatus 按上游状态码构造错误
func FromStatus(status int, message string) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Message: message}
}

// Wrap 包装底层错误；底层已携带上游状态码时保留分类
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return &Error{Kind: de.Kind, Status: de.Status, Message: message, Err: err}
	}

	status := StatusOf(err)
	return &Error{Kind: kindForStatus(status), Status: status, Message: message, Err: err}
}

func kindForStatus(status int) Kind {
	switch status {
	case 404:
		return KindNotFound
	case 429, 500, 503:
		return KindTransient
	default:
		return KindUnknown
	}
}

// statusCoder 上游错误携带状态码的最小接口
type statusCoder interface {
	UpstreamStatus() int
}

// StatusOf 提取错误链上的上游状态码，没有则返回 0
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.UpstreamStatus()
	}
	return 0
}

// KindOf 提取错误分类，非结构化错误归入 Unknown
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound 判断是否 NotFound
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsTransient 判断是否可重试
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsTimeout 判断是否轮询超时
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
