package generator

import (
	"fmt"
	"strings"
)

// NewLLM builds the client for a provider name.
func NewLLM(cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key_env in config")
	}
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		return MockLLM{}, nil
	case "openai", "gemini":
		return NewOpenAILLMFromConfig(cfg)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(cfg)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
