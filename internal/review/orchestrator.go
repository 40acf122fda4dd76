// internal/review/orchestrator.go
package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/Corphon/AICodeReviewer/internal/utils"
)

// GenerateRequest 一次模型生成调用
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
}

// Generator 外部文本生成能力
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// Observer 接收逐块进度，不影响审查结果
type Observer interface {
	OnChunkStart(index, total int)
	OnChunkReviewed(review ChunkReview, total int)
	OnChunkFailed(index, total int, err error)
}

// Options 编排器选项，零值使用默认配置
type Options struct {
	ChunkSize  int
	Classifier Classifier
	Prompts    *Prompts
}

// Orchestrator 对输入分类、分块，并逐块顺序调用模型
type Orchestrator struct {
	generator  Generator
	classifier Classifier
	prompts    Prompts
	chunkSize  int
	logger     *utils.Logger
}

// NewOrchestrator 创建审查编排器
func NewOrchestrator(generator Generator, opts Options) (*Orchestrator, error) {
	if generator == nil {
		return nil, fmt.Errorf("review generator is required")
	}

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = NewMarkerClassifier()
	}

	prompts := DefaultPrompts()
	if opts.Prompts != nil {
		if err := opts.Prompts.Validate(); err != nil {
			return nil, err
		}
		prompts = *opts.Prompts
	}

	return &Orchestrator{
		generator:  generator,
		classifier: classifier,
		prompts:    prompts,
		chunkSize:  chunkSize,
		logger:     utils.GetLogger(),
	}, nil
}

// ChunkSize 当前分块大小
func (o *Orchestrator) ChunkSize() int {
	return o.chunkSize
}

// Classifier 当前使用的分类器
func (o *Orchestrator) Classifier() Classifier {
	return o.classifier
}

// Classify 判断输入类型
func (o *Orchestrator) Classify(input string) Kind {
	return o.classifier.Classify(input)
}

// Review 入口：闲聊文本走单次对话，代码走分块审查
func (o *Orchestrator) Review(ctx context.Context, input string, observers ...Observer) Result {
	// 空白输入在分类之前拒绝，不发起生成调用
	if strings.TrimSpace(input) == "" {
		return Result{Kind: KindCasualText, Status: StatusFailure, FailedChunk: -1, Err: ErrEmptyInput}
	}

	if o.Classify(input) == KindCasualText {
		return o.ReviewCasualText(ctx, input, observers...)
	}
	return o.ReviewCode(ctx, input, observers...)
}

// ReviewCode 逐块顺序审查代码，任一分块失败即终止
func (o *Orchestrator) ReviewCode(ctx context.Context, input string, observers ...Observer) Result {
	result := Result{
		Kind:        KindCode,
		Status:      StatusSuccess,
		FailedChunk: -1,
		Smells:      DetectCodeSmells(input),
	}

	chunks, err := Chunk(input, o.chunkSize)
	if err != nil {
		result.Status = StatusFailure
		result.Err = err
		return result
	}
	result.TotalChunks = len(chunks)
	result.Reviews = make([]ChunkReview, 0, len(chunks))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return o.abort(result, i, err, observers)
		}

		for _, obs := range observers {
			obs.OnChunkStart(i, len(chunks))
		}

		text, err := o.generator.Generate(ctx, GenerateRequest{
			SystemInstruction: o.prompts.SystemInstruction,
			Prompt:            o.prompts.CodePrompt(chunk),
		})
		if err != nil {
			return o.abort(result, i, err, observers)
		}

		cr := ChunkReview{Index: i, Chunk: chunk, Text: text}
		result.Reviews = append(result.Reviews, cr)
		for _, obs := range observers {
			obs.OnChunkReviewed(cr, len(chunks))
		}
	}

	o.logger.Debug("代码审查完成", map[string]interface{}{
		"chunks": len(chunks),
		"review": result.Text(),
	})
	return result
}

// ReviewCasualText 对闲聊文本只发起一次生成调用
func (o *Orchestrator) ReviewCasualText(ctx context.Context, input string, observers ...Observer) Result {
	result := Result{
		Kind:        KindCasualText,
		Status:      StatusSuccess,
		TotalChunks: 1,
		FailedChunk: -1,
	}

	if err := ctx.Err(); err != nil {
		return o.abort(result, 0, err, observers)
	}

	for _, obs := range observers {
		obs.OnChunkStart(0, 1)
	}

	text, err := o.generator.Generate(ctx, GenerateRequest{
		SystemInstruction: o.prompts.SystemInstruction,
		Prompt:            o.prompts.CasualPrompt(input),
	})
	if err != nil {
		return o.abort(result, 0, err, observers)
	}

	cr := ChunkReview{Index: 0, Chunk: input, Text: text}
	result.Reviews = []ChunkReview{cr}
	for _, obs := range observers {
		obs.OnChunkReviewed(cr, 1)
	}
	return result
}

func (o *Orchestrator) abort(result Result, index int, err error, observers []Observer) Result {
	result.FailedChunk = index
	result.Err = &ChunkError{Index: index, Total: result.TotalChunks, Err: err}
	if len(result.Reviews) == 0 {
		result.Status = StatusFailure
	} else {
		result.Status = StatusPartialFailure
	}

	for _, obs := range observers {
		obs.OnChunkFailed(index, result.TotalChunks, err)
	}

	o.logger.Error("审查分块生成失败", map[string]interface{}{
		"kind":  string(result.Kind),
		"chunk": index + 1,
		"total": result.TotalChunks,
		"error": err.Error(),
	})
	return result
}
