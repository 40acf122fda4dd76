// internal/review/result.go
package review

import (
	"errors"
	"fmt"
	"strings"
)

// Status 一次审查的整体结果
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailure        Status = "failure"
)

// 面向用户的失败提示
const (
	CodeFailureMessage   = "An error occurred while reviewing the code."
	CasualFailureMessage = "Sorry, I couldn't process your message right now."
)

// SegmentSeparator 各分块审查结果之间的分隔（一个空行）
const SegmentSeparator = "\n\n"

// ErrEmptyInput 输入为空白
var ErrEmptyInput = errors.New("review input is empty")

// ChunkReview 单个分块的审查结果
type ChunkReview struct {
	Index int    `json:"index"`
	Chunk string `json:"-"`
	Text  string `json:"text"`
}

// ChunkError 某个分块生成失败
type ChunkError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d: %v", e.Index+1, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Result 审查的类型化结果，区分成功、部分失败和完全失败
type Result struct {
	Kind        Kind
	Status      Status
	Reviews     []ChunkReview
	TotalChunks int
	FailedChunk int
	Smells      []string
	Err         error
}

// OK 是否全部成功
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Text 拼接已完成分块的审查文本，坏味道提示（如有）放在最前
func (r Result) Text() string {
	var b strings.Builder
	if len(r.Smells) > 0 {
		b.WriteString("🛑 **Code Smells Detected:**\n")
		b.WriteString(strings.Join(r.Smells, "\n"))
		if len(r.Reviews) > 0 {
			b.WriteString(SegmentSeparator)
		}
	}
	for i, rv := range r.Reviews {
		if i > 0 {
			b.WriteString(SegmentSeparator)
		}
		b.WriteString(rv.Text)
	}
	return b.String()
}

// Message 成功时返回审查文本，失败时返回固定提示
func (r Result) Message() string {
	if r.OK() {
		return r.Text()
	}
	if r.Kind == KindCasualText {
		return CasualFailureMessage
	}
	return CodeFailureMessage
}
