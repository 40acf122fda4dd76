// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest      = "BAD_REQUEST"
	ErrorNotFound        = "NOT_FOUND"
	ErrorInternalError   = "INTERNAL_ERROR"
	ErrorConflict        = "CONFLICT"
	ErrorForbidden       = "FORBIDDEN"
	ErrorUnauthorized    = "UNAUTHORIZED"
	ErrorPayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrorRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrorOriginDenied    = "ORIGIN_NOT_ALLOWED"

	// 审查相关错误
	ErrorReviewFailed = "REVIEW_FAILED"
	ErrorEmptyInput   = "EMPTY_INPUT"
	ErrorUpstream     = "UPSTREAM_ERROR"
	ErrorTimeout      = "TIMEOUT"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"
)
