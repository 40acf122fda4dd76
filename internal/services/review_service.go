// internal/services/review_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Corphon/AICodeReviewer/internal/errors"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"golang.org/x/sync/semaphore"
)

// ReviewServiceConfig 审查服务参数
type ReviewServiceConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// ReviewService 在编排器之外增加超时、并发上限和指标
type ReviewService struct {
	orchestrator *review.Orchestrator
	timeout      time.Duration
	slots        *semaphore.Weighted
	metrics      *utils.MetricsCollector
	logger       *utils.Logger
}

// NewReviewService 创建审查服务
func NewReviewService(orchestrator *review.Orchestrator, cfg ReviewServiceConfig) *ReviewService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ReviewService{
		orchestrator: orchestrator,
		timeout:      cfg.Timeout,
		slots:        semaphore.NewWeighted(int64(maxConcurrent)),
		metrics:      utils.GetMetricsCollector(),
		logger:       utils.GetLogger(),
	}
}

// ChunkSize 当前分块大小
func (s *ReviewService) ChunkSize() int {
	return s.orchestrator.ChunkSize()
}

// Classify 仅分类并统计分块数，不调用模型
func (s *ReviewService) Classify(input string) (review.Kind, string, int) {
	kind := s.orchestrator.Classify(input)

	marker := ""
	if mc, ok := s.classifier(); ok {
		marker, _ = mc.Match(input)
	}

	chunks := 1
	if kind == review.KindCode {
		pieces, err := review.Chunk(input, s.orchestrator.ChunkSize())
		if err == nil {
			chunks = len(pieces)
		}
	}
	return kind, marker, chunks
}

func (s *ReviewService) classifier() (*review.MarkerClassifier, bool) {
	mc, ok := s.orchestrator.Classifier().(*review.MarkerClassifier)
	return mc, ok
}

// Review 审查输入。返回的 error 只表示未能开始（空输入、排队超时）；
// 生成失败体现在 Result 中
func (s *ReviewService) Review(ctx context.Context, input string, observers ...review.Observer) (review.Result, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		s.metrics.IncrementCounter("reviews_rejected")
		return review.Result{}, apperrors.NewUnavailableError("review queue is full", err)
	}
	defer s.slots.Release(1)

	s.metrics.IncGauge("reviews_in_flight")
	defer s.metrics.DecGauge("reviews_in_flight")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result := s.orchestrator.Review(ctx, input, observers...)
	elapsed := time.Since(start)

	if errors.Is(result.Err, review.ErrEmptyInput) {
		return result, apperrors.NewValidationError("Code is required", result.Err)
	}

	s.record(result, elapsed)
	return result, nil
}

func (s *ReviewService) record(result review.Result, elapsed time.Duration) {
	if result.Kind == review.KindCasualText {
		s.metrics.IncrementCounter("casual_messages_total")
	} else {
		s.metrics.IncrementCounter("reviews_total")
		s.metrics.AddCounter("review_chunks_total", int64(len(result.Reviews)))
	}
	s.metrics.RecordHistogram("review_duration_ms", elapsed.Milliseconds())

	fields := map[string]interface{}{
		"kind":        string(result.Kind),
		"status":      string(result.Status),
		"chunks":      result.TotalChunks,
		"completed":   len(result.Reviews),
		"duration_ms": elapsed.Milliseconds(),
	}
	if !result.OK() {
		s.metrics.IncrementCounter("reviews_failed")
		fields["failed_chunk"] = result.FailedChunk
		fields["error"] = result.Err
		s.logger.Warn("❌ 审查未完成", fields)
		return
	}
	s.logger.Info("✅ 审查完成", fields)
}

// FailureError 把失败的 Result 转为 AppError，供 API 层映射状态码
func FailureError(result review.Result) error {
	if result.OK() {
		return nil
	}
	if errors.Is(result.Err, context.DeadlineExceeded) || errors.Is(result.Err, context.Canceled) {
		return apperrors.NewTimeoutError(result.Message(), result.Err)
	}
	if errors.Is(result.Err, ErrLLMNotReady) {
		return apperrors.NewUnavailableError(result.Message(), result.Err)
	}
	return apperrors.NewUpstreamError(result.Message(), fmt.Errorf("review %s: %w", result.Status, result.Err))
}
