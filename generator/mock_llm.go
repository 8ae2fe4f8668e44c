package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/sjson"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// 返回的 JSON 与真实模型约定的结构一致。
type MockLLM struct {
	Delay time.Duration
}

func (m MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	name := prompt.Labels[LabelPersona]
	platform := prompt.Labels[LabelPlatform]
	draft := prompt.Labels[LabelDraft]

	body := "{}"
	var err error
	content := fmt.Sprintf("【%s · %s】\n\n%s", name, platform, draft)
	if body, err = sjson.Set(body, "content", content); err != nil {
		return "", err
	}
	if body, err = sjson.Set(body, "analysis", fmt.Sprintf("按 %s 的语气改写为 %s 风格（mock）", name, platform)); err != nil {
		return "", err
	}
	if body, err = sjson.Set(body, "tags", []string{platform, "mock"}); err != nil {
		return "", err
	}
	return body, nil
}
