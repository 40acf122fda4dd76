// internal/models/review.go
package models

// ReviewRequest 审查请求，code 字段为原始文本
type ReviewRequest struct {
	Code string `json:"code"`
}

// ReviewResponse 审查结果
type ReviewResponse struct {
	Review      string   `json:"review"`
	Kind        string   `json:"kind"`
	Status      string   `json:"status"`
	Chunks      int      `json:"chunks"`
	Completed   int      `json:"completed"`
	FailedChunk *int     `json:"failed_chunk,omitempty"`
	Smells      []string `json:"smells,omitempty"`
}

// ClassifyResponse 分类结果
type ClassifyResponse struct {
	Kind   string `json:"kind"`
	Marker string `json:"marker,omitempty"`
	Chunks int    `json:"chunks"`
}
