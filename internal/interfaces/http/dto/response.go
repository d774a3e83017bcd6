// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracehub-api/pkg/errors"
)

// gin 上下文键，由中间件写入，响应信封读取
const (
	ContextKeyRequestID = "request_id"
	ContextKeyTraceID   = "trace_id"
)

// Response 成功响应信封
type Response[T any] struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      *PageMeta `json:"meta,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorDetail 业务错误码与补充说明
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code      int          `json:"code"`
	Message   string       `json:"message"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	TraceID   string       `json:"trace_id,omitempty"`
}

func respond[T any](c *gin.Context, status int, data T, meta *PageMeta) {
	msg := "success"
	switch status {
	case http.StatusCreated:
		msg = "created"
	case http.StatusAccepted:
		msg = "accepted"
	}
	c.JSON(status, Response[T]{
		Code:      status,
		Message:   msg,
		Data:      data,
		Meta:      meta,
		RequestID: c.GetString(ContextKeyRequestID),
		TraceID:   c.GetString(ContextKeyTraceID),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, data, nil)
}

// SuccessWithPage 200，附带分页信息
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, data, meta)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	respond(c, http.StatusCreated, data, nil)
}

// Accepted 202，异步任务已入队
func Accepted[T any](c *gin.Context, data T) {
	respond(c, http.StatusAccepted, data, nil)
}

// Fail 按 AppError 的状态码与错误码写出错误响应
func Fail(c *gin.Context, appErr *errors.AppError) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: appErr.Message,
		Error: &ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		},
		RequestID: c.GetString(ContextKeyRequestID),
		TraceID:   c.GetString(ContextKeyTraceID),
	})
}

// BadRequest 请求体或路径参数无法解析
func BadRequest(c *gin.Context, details string) {
	Fail(c, errors.ErrInvalidParam.WithDetail(details))
}

// InternalError 500，不向调用方暴露底层错误
func InternalError(c *gin.Context, message string) {
	Fail(c, errors.New(errors.CodeInternalError, message))
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize, total int) *PageMeta {
	meta := &PageMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	return meta
}
