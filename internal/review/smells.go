// internal/review/smells.go
package review

import (
	"regexp"
	"strings"
)

const (
	maxFunctionLines = 30
	maxClassLines    = 200
	maxParameters    = 5
)

var (
	functionBodyPattern = regexp.MustCompile(`function\s+\w+\s*\(.*\)\s*{([\s\S]*?)}`)
	classBodyPattern    = regexp.MustCompile(`class\s+\w+\s*{([\s\S]*?)}`)
	functionSigPattern  = regexp.MustCompile(`function\s+\w+\s*\((.*?)\)`)
)

const (
	smellLongFunction  = "⚠️ **Long Function Detected:** A function exceeds 30 lines. Consider breaking it into smaller functions."
	smellLargeClass    = "⚠️ **Large Class Detected:** A class exceeds 200 lines. Consider splitting it into multiple classes."
	smellTooManyParams = "⚠️ **Too Many Parameters:** A function has more than 5 parameters. Consider grouping them into an object."
)

// DetectCodeSmells 基于正则的简单坏味道检测，每处命中产生一条提示
func DetectCodeSmells(code string) []string {
	var smells []string

	for _, fn := range functionBodyPattern.FindAllString(code, -1) {
		if lineCount(fn) > maxFunctionLines {
			smells = append(smells, smellLongFunction)
		}
	}

	for _, cls := range classBodyPattern.FindAllString(code, -1) {
		if lineCount(cls) > maxClassLines {
			smells = append(smells, smellLargeClass)
		}
	}

	for _, m := range functionSigPattern.FindAllStringSubmatch(code, -1) {
		if len(strings.Split(m[1], ",")) > maxParameters {
			smells = append(smells, smellTooManyParams)
		}
	}

	return smells
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
