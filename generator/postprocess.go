package generator

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultAnalysis 在模型未给出 analysis 时使用。
const DefaultAnalysis = "AI generated"

// Result 是一次改写的结构化产出。
type Result struct {
	Content  string   `json:"content"`
	Analysis string   `json:"analysis"`
	Tags     []string `json:"tags"`
}

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")

// ParseResult 解析模型返回的 JSON，并对缺失字段做降级补全：
// content 缺失时退回原始文本，analysis 缺失时给占位说明，tags 缺失时为空列表。
func ParseResult(raw string) (Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{}, ErrEmptyResponse
	}
	if m := fencePattern.FindStringSubmatch(text); len(m) == 2 {
		text = strings.TrimSpace(m[1])
	}
	if !gjson.Valid(text) {
		return Result{}, &ParseError{Raw: text}
	}

	doc := gjson.Parse(text)
	res := Result{
		Content:  doc.Get("content").String(),
		Analysis: doc.Get("analysis").String(),
		Tags:     []string{},
	}
	if strings.TrimSpace(res.Content) == "" {
		res.Content = strings.TrimSpace(raw)
	}
	if strings.TrimSpace(res.Analysis) == "" {
		res.Analysis = DefaultAnalysis
	}
	if tags := doc.Get("tags"); tags.Exists() {
		for _, t := range tags.Array() {
			if tag := strings.TrimSpace(t.String()); tag != "" {
				res.Tags = append(res.Tags, tag)
			}
		}
	}
	return res, nil
}
