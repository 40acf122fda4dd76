// internal/review/prompts.go
package review

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InputPlaceholder 提示词模板中被替换为用户输入的占位符
const InputPlaceholder = "{{input}}"

// Prompts 审查用的提示词集合
type Prompts struct {
	SystemInstruction string `yaml:"system_instruction"`
	CodeReview        string `yaml:"code_review"`
	Casual            string `yaml:"casual"`
}

const defaultSystemInstruction = `*AI System Instruction: Senior Code Reviewer (7+ Years of Experience)*

*Role & Responsibilities:*
You are an expert code reviewer with over 7 years of development experience. Your role is to:
- Analyze code for *quality, best practices, efficiency, scalability, and readability*.
- Provide *constructive feedback* tailored to the code's state (*erroneous or error-free*).
- Detect *the programming language* automatically and explicitly mention it in the review.
- Detect *code smells* that indicate poor design choices and suggest improvements.
- Structure the response strictly using this format:

📝 **Review Output Format:**

*Detected Language:*
<language name>

1️⃣ *For Erroneous Code:*
- ❌ **Bad Code:** (Show incorrect code snippet)
- 🔍 **Issues:** (List detected problems)
- ✅ **Recommended Fix:** (Provide corrected version)
- 💡 **Improvements:** (Additional optimizations)
- 📝 **Final Note:** (Summary of findings)

2️⃣ *For Error-Free Code:*
- ✅ **Good Code:** (Show the correct code snippet)
- 💡 **Recommended Improvements:** (If applicable)
- 🛑 **Code Smells:** (If applicable)
- 📝 **Final Note:** (Summary of findings)

*Review Guidelines:*
- If code is too lengthy, analyze it **in logical sections** and mention if it was **partially reviewed**.
- Provide a friendly, constructive tone while maintaining precision.`

const defaultCodeReviewPrompt = "Analyze the following code and provide a structured review based on detected errors and improvements:\n\n" +
	"```\n" + InputPlaceholder + "\n```\n\n" +
	`Respond strictly in this format:
📝 **Review Output Format:**

*Detected Language:*
<language name>

❌ **Bad Code:** (Show incorrect code snippet)
🔍 **Issues:** (List detected problems)
✅ **Recommended Fix:** (Provide corrected version)
💡 **Improvements:** (Additional optimizations)
📝 **Final Note:** (Summary of findings)`

const defaultCasualPrompt = "The user sent a casual message rather than code. Reply in a friendly, conversational tone " +
	"and do not use the review format. If it helps, invite them to paste code for a review.\n\n" +
	"```\n" + InputPlaceholder + "\n```"

// DefaultPrompts 返回内置的提示词
func DefaultPrompts() Prompts {
	return Prompts{
		SystemInstruction: defaultSystemInstruction,
		CodeReview:        defaultCodeReviewPrompt,
		Casual:            defaultCasualPrompt,
	}
}

// CodePrompt 将分块嵌入代码审查模板
func (p Prompts) CodePrompt(chunk string) string {
	return strings.Replace(p.CodeReview, InputPlaceholder, chunk, 1)
}

// CasualPrompt 将原文嵌入闲聊模板
func (p Prompts) CasualPrompt(text string) string {
	return strings.Replace(p.Casual, InputPlaceholder, text, 1)
}

// Validate 检查模板是否包含占位符
func (p Prompts) Validate() error {
	if !strings.Contains(p.CodeReview, InputPlaceholder) {
		return fmt.Errorf("code_review prompt must contain %s", InputPlaceholder)
	}
	if !strings.Contains(p.Casual, InputPlaceholder) {
		return fmt.Errorf("casual prompt must contain %s", InputPlaceholder)
	}
	return nil
}

// LoadPrompts 从 YAML 文件加载提示词，未设置的字段沿用默认值。
// path 为空或文件不存在时直接返回默认值。
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prompts, nil
		}
		return prompts, fmt.Errorf("read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	if override.SystemInstruction != "" {
		prompts.SystemInstruction = override.SystemInstruction
	}
	if override.CodeReview != "" {
		prompts.CodeReview = override.CodeReview
	}
	if override.Casual != "" {
		prompts.Casual = override.Casual
	}

	if err := prompts.Validate(); err != nil {
		return DefaultPrompts(), err
	}
	return prompts, nil
}
