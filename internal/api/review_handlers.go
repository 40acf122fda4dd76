// internal/api/review_handlers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/gin-gonic/gin"
)

// bindReviewRequest 解析 {code}；失败时已写出响应
func (h *Handler) bindReviewRequest(c *gin.Context) (string, bool) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			h.Response.Error(c, http.StatusRequestEntityTooLarge, ErrorPayloadTooLarge, "Input is too large")
			return "", false
		}
		h.Response.BadRequest(c, "Invalid request format", err.Error())
		return "", false
	}
	if strings.TrimSpace(req.Code) == "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorEmptyInput, "Code is required")
		return "", false
	}
	return req.Code, true
}

// GetReview 审查代码或回复闲聊文本
func (h *Handler) GetReview(c *gin.Context) {
	input, ok := h.bindReviewRequest(c)
	if !ok {
		return
	}

	result, err := h.ReviewService.Review(c.Request.Context(), input)
	if err != nil {
		h.Response.FromError(c, err, "")
		return
	}

	resp := toReviewResponse(result)
	if failure := services.FailureError(result); failure != nil {
		status, _, _ := statusFor(failure)
		h.Response.ErrorWithData(c, status, ErrorReviewFailed, result.Message(), resp, errorDetail(result.Err))
		return
	}

	h.Response.Success(c, resp)
}

// ClassifyInput 只做分类和分块统计，不调用模型
func (h *Handler) ClassifyInput(c *gin.Context) {
	input, ok := h.bindReviewRequest(c)
	if !ok {
		return
	}

	kind, marker, chunks := h.ReviewService.Classify(input)
	h.Response.Success(c, models.ClassifyResponse{
		Kind:   string(kind),
		Marker: marker,
		Chunks: chunks,
	})
}

func toReviewResponse(result review.Result) models.ReviewResponse {
	resp := models.ReviewResponse{
		Review:    result.Message(),
		Kind:      string(result.Kind),
		Status:    string(result.Status),
		Chunks:    result.TotalChunks,
		Completed: len(result.Reviews),
		Smells:    result.Smells,
	}
	if result.FailedChunk >= 0 {
		failed := result.FailedChunk
		resp.FailedChunk = &failed
	}
	return resp
}

// errorDetail 只暴露失败分块的位置，不透出上游错误原文
func errorDetail(err error) string {
	var chunkErr *review.ChunkError
	if errors.As(err, &chunkErr) {
		return fmt.Sprintf("chunk %d/%d", chunkErr.Index+1, chunkErr.Total)
	}
	return ""
}
