// internal/review/chunker.go
package review

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// DefaultChunkSize 单个分块允许的最大字符数
const DefaultChunkSize = 5000

// ErrInvalidChunkSize 分块大小必须为正数
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Chunk 将输入按字符切分为连续的分块。
// 除最后一块外每块恰好 maxSize 个字符，按顺序拼接即得到原文。
func Chunk(input string, maxSize int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, maxSize)
	}
	if input == "" {
		return []string{}, nil
	}

	chunks := make([]string, 0, utf8.RuneCountInString(input)/maxSize+1)
	start, count := 0, 0
	for i := range input {
		if count == maxSize {
			chunks = append(chunks, input[start:i])
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, input[start:])

	return chunks, nil
}
