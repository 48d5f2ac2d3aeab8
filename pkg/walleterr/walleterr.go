package walleterr

import (
	"errors"
	"fmt"
)

// Code 表示前台会话统一业务错误码。
type Code string

const (
	// CodeProtocolViolation 表示响应判别值与请求不匹配，属于 channel/authority 缺陷，重试无意义。
	CodeProtocolViolation Code = "PROTOCOL_VIOLATION"
	// CodeDeclined 表示用户明确拒绝确认，属于预期路径而非异常。
	CodeDeclined Code = "DECLINED"
	// CodeExpired 表示 authority 侧确认超时，需与 Declined 区分展示。
	CodeExpired Code = "EXPIRED"
	// CodeAuthority 表示 authority 返回的领域错误，消息原样透传。
	CodeAuthority Code = "AUTHORITY_ERROR"
	// CodeChannelClosed 表示请求在连接断开/重连期间丢失。
	CodeChannelClosed Code = "CHANNEL_CLOSED"
	// CodeInvalidArgument 表示调用方入参非法。
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeSecretUnavailable 表示私钥材料永远不会离开 authority 边界。
	CodeSecretUnavailable Code = "SECRET_UNAVAILABLE"
)

var httpStatusMap = map[Code]int{
	CodeProtocolViolation: 502,
	CodeDeclined:          403,
	CodeExpired:           410,
	CodeAuthority:         422,
	CodeChannelClosed:     503,
	CodeInvalidArgument:   400,
	CodeSecretUnavailable: 403,
}

// Error 表示带统一错误码的业务错误。
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New 创建一个新的业务错误。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 按格式串创建业务错误。
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 在保留底层原因的同时附加错误码。
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Code)
	}
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 暴露底层原因以兼容 errors.Is/As。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// FromError 尝试从通用 error 中解析业务错误。
func FromError(err error) (*Error, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}

// HasCode 判断 err 是否携带指定错误码。
func HasCode(err error, code Code) bool {
	werr, ok := FromError(err)
	return ok && werr.Code == code
}

// IsDeclined 判断是否为用户拒绝。
func IsDeclined(err error) bool { return HasCode(err, CodeDeclined) }

// IsExpired 判断是否为确认超时。
func IsExpired(err error) bool { return HasCode(err, CodeExpired) }

// IsProtocolViolation 判断是否为协议违例。
func IsProtocolViolation(err error) bool { return HasCode(err, CodeProtocolViolation) }

// HTTPStatus 返回对应的 HTTP 状态码，未知错误默认 500。
func HTTPStatus(code Code) int {
	if status, ok := httpStatusMap[code]; ok {
		return status
	}
	return 500
}
