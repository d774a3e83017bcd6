// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound        ErrorCode = "3001"
	CodeProjectVersionNotFound ErrorCode = "3002"
	CodeArtifactNotFound       ErrorCode = "3003"
	CodeJobNotFound            ErrorCode = "3004"

	// 版本化错误 (4xxx)
	CodeVersionContract     ErrorCode = "4001"
	CodeManualLinkOverride  ErrorCode = "4002"
	CodeDuplicateBatchEntry ErrorCode = "4003"
	CodeInvalidAppEntity    ErrorCode = "4004"

	// 外部服务错误 (5xxx)
	CodeIntegrityViolation ErrorCode = "5003"
	CodeQueueError         ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is 匹配预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回带详细信息的副本（不修改预定义错误）
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Err = err
	return appErr
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidParam, CodeInvalidAppEntity, CodeDuplicateBatchEntry:
		return http.StatusBadRequest
	case CodeNotFound, CodeProjectNotFound, CodeProjectVersionNotFound, CodeArtifactNotFound, CodeJobNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeManualLinkOverride, CodeIntegrityViolation:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrProjectNotFound        = New(CodeProjectNotFound, "project not found")
	ErrProjectVersionNotFound = New(CodeProjectVersionNotFound, "project version not found")
	ErrArtifactNotFound       = New(CodeArtifactNotFound, "could not find artifact")
	ErrJobNotFound            = New(CodeJobNotFound, "job not found")

	ErrVersionContract     = New(CodeVersionContract, "project version contract violated")
	ErrManualLinkOverride  = New(CodeManualLinkOverride, "generated trace link cannot override manual trace link")
	ErrDuplicateBatchEntry = New(CodeDuplicateBatchEntry, "duplicate entry in batch")
	ErrInvalidAppEntity    = New(CodeInvalidAppEntity, "invalid application entity")

	ErrIntegrityViolation = New(CodeIntegrityViolation, "integrity constraint violated")
)

// IsAppError 检查错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
