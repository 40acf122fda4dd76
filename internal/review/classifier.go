// internal/review/classifier.go
package review

import "regexp"

// Kind 输入内容的分类结果
type Kind string

const (
	KindCode       Kind = "code"
	KindCasualText Kind = "casual_text"
)

// Classifier 判断输入是代码还是普通文本
type Classifier interface {
	Classify(input string) Kind
}

// Marker 一个具名的词法标记
type Marker struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultMarkers 源码中常见的词法标记。这是启发式匹配，不是语法解析，
// 误判是可以接受的。
var DefaultMarkers = []Marker{
	{Name: "function_declaration", Pattern: regexp.MustCompile(`\bfunction\b\s*\*?\s*[A-Za-z_$]?[\w$]*\s*\(`)},
	{Name: "class_declaration", Pattern: regexp.MustCompile(`\bclass\s+[A-Za-z_$][\w$]*`)},
	{Name: "variable_declaration", Pattern: regexp.MustCompile(`\b(?:const|let|var)\s+[A-Za-z_$][\w$]*\s*[=;:,]`)},
	{Name: "module_keyword", Pattern: regexp.MustCompile(`(?m)^\s*(?:import|export)\s`)},
	{Name: "arrow_function", Pattern: regexp.MustCompile(`=>`)},
}

// MarkerClassifier 任意标记命中即视为代码
type MarkerClassifier struct {
	Markers []Marker
}

// NewMarkerClassifier 使用默认标记集创建分类器
func NewMarkerClassifier() *MarkerClassifier {
	return &MarkerClassifier{Markers: DefaultMarkers}
}

// Classify 实现 Classifier
func (c *MarkerClassifier) Classify(input string) Kind {
	if _, ok := c.Match(input); ok {
		return KindCode
	}
	return KindCasualText
}

// Match 返回第一个命中的标记名称
func (c *MarkerClassifier) Match(input string) (string, bool) {
	for _, m := range c.Markers {
		if m.Pattern.MatchString(input) {
			return m.Name, true
		}
	}
	return "", false
}
