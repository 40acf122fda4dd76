// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/AICodeReviewer/internal/errors"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.respond(c, http.StatusOK, data, message...)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.respond(c, http.StatusCreated, data, message...)
}

func (rh *ResponseHelper) respond(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// sanitizeErrorMessage 含密钥类字样的消息整体替换
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "secret"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error 错误响应。message 同时放在顶层，兼容只读取 message 字段的前端
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	rh.ErrorWithData(c, statusCode, errorCode, message, nil, details...)
}

// ErrorWithData 错误响应，附带部分结果
func (rh *ResponseHelper) ErrorWithData(c *gin.Context, statusCode int, errorCode, message string, data interface{}, details ...string) {
	sanitizedMessage := sanitizeErrorMessage(message)

	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizedMessage,
	}
	if len(details) > 0 && details[0] != "" {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.AbortWithStatusJSON(statusCode, &APIResponse{
		Success:   false,
		Data:      data,
		Error:     apiError,
		Message:   sanitizedMessage,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// Unauthorized 401错误响应
func (rh *ResponseHelper) Unauthorized(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusUnauthorized, ErrorUnauthorized, message, details...)
}

// Forbidden 403错误响应
func (rh *ResponseHelper) Forbidden(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusForbidden, ErrorForbidden, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// FromError 按 AppError 类型选择状态码；code 非空时覆盖错误代码
func (rh *ResponseHelper) FromError(c *gin.Context, err error, code string) {
	status, defaultCode, message := statusFor(err)
	if code == "" {
		code = defaultCode
	}

	if status >= http.StatusInternalServerError {
		utils.GetLogger().Error("请求处理失败", map[string]interface{}{
			"path":       c.FullPath(),
			"status":     status,
			"request_id": rh.getRequestID(c),
			"error":      err,
		})
	}

	rh.Error(c, status, code, message)
}

func statusFor(err error) (int, string, string) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorInternalError, "Server error"
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorBadRequest, appErr.Message
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized, ErrorUnauthorized, appErr.Message
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden, ErrorForbidden, appErr.Message
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorNotFound, appErr.Message
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict, appErr.Message
	case apperrors.ErrorTypeUpstream:
		return http.StatusBadGateway, ErrorUpstream, appErr.Message
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout, ErrorTimeout, appErr.Message
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable, ErrorLLMServiceUnavailable, appErr.Message
	default:
		return http.StatusInternalServerError, ErrorInternalError, "Server error"
	}
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
